package main

import (
	"errors"
	"log/slog"
	"os"

	"petit-panthere/internal/driver/credential"
)

func main() {
	err := run()
	if err == nil {
		return
	}

	var missing *credential.MissingError
	if errors.As(err, &missing) {
		printMissingCredential(os.Stdout, missing)
		os.Exit(1)
	}
	slog.Error("chatbot exited with error", "error", err)
	os.Exit(1)
}
