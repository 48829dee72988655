package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
)

const maxBodyBytes = 64 << 10

// flexString accepts a JSON string or number, so clients may send
// phone_number and otp either way. Numbers keep their literal digits.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*f = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("expected string or number: %w", err)
		}
		*f = flexString(n.String())
		return nil
	}
}

// formField is a text field that records a JSON value of the wrong type
// instead of failing the whole body, so it can be reported next to the
// other field errors.
type formField struct {
	Value    string
	IsNumber bool
	Invalid  bool // bool, array or object
}

func (f *formField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*f = formField{}
	if len(b) == 0 {
		return nil
	}

	switch b[0] {
	case 'n':
		return nil
	case '"':
		return json.Unmarshal(b, &f.Value)
	case 't', 'f', '[', '{':
		f.Invalid = true
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		f.Value, f.IsNumber = n.String(), true
		return nil
	}
}

// text returns the field as a string. Numbers count as text only when
// numbers is set; otherwise the field is reported as malformed.
func (f formField) text(name string, numbers bool, malformed *[]string) string {
	if f.Invalid || (f.IsNumber && !numbers) {
		*malformed = append(*malformed, name)
		return ""
	}
	return f.Value
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// decodeBody fills dst from a JSON body, or calls fromForm with the parsed
// form for url-encoded and multipart submissions. An empty JSON body leaves
// dst untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, fromForm func(get func(string) string)) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if isJSON(r) {
		dec := json.NewDecoder(r.Body)
		if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	}

	if err := r.ParseMultipartForm(maxBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return err
	}
	fromForm(r.FormValue)
	return nil
}
