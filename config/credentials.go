package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Credentials holds the Zerodha login secrets. They never appear in the yaml
// config; only the environment (optionally seeded from a .env file) carries
// them.
type Credentials struct {
	UserID     string
	Password   string
	TOTPSecret string
}

// LoadCredentials reads USER_ID, PASSWORD and TOTP_KEY from the environment.
// A .env file in the working directory is loaded first when present.
func LoadCredentials() (Credentials, error) {
	// a missing .env is fine, the variables may be exported directly
	_ = godotenv.Load()

	creds := Credentials{
		UserID:     os.Getenv("USER_ID"),
		Password:   os.Getenv("PASSWORD"),
		TOTPSecret: os.Getenv("TOTP_KEY"),
	}

	if creds.UserID == "" || creds.Password == "" || creds.TOTPSecret == "" {
		return Credentials{}, errors.New("missing credentials: USER_ID, PASSWORD and TOTP_KEY must be set")
	}

	return creds, nil
}
