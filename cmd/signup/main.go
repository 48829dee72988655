// Command signup serves phone-verified account registration.
package main

import (
	"log"

	"github.com/aussiebroadwan/signup/internal/signup/app"
)

func main() {
	cfg := app.LoadConfig()

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
