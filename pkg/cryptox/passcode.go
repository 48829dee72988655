package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"strconv"
)

// Passcode bounds, both inclusive.
const (
	PasscodeMin = 1000
	PasscodeMax = 9999
)

var passcodeSpan = big.NewInt(PasscodeMax - PasscodeMin + 1)

// GeneratePasscode draws a four digit code uniformly from
// [PasscodeMin, PasscodeMax] using the system CSPRNG.
func GeneratePasscode() (int, error) {
	n, err := rand.Int(rand.Reader, passcodeSpan)
	if err != nil {
		return 0, fmt.Errorf("cryptox: generate passcode: %w", err)
	}
	return PasscodeMin + int(n.Int64()), nil
}

// PasscodeEqual compares a submitted code with the stored one in constant
// time.
func PasscodeEqual(stored int, submitted string) bool {
	return subtle.ConstantTimeCompare([]byte(strconv.Itoa(stored)), []byte(submitted)) == 1
}
