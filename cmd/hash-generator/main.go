// Command hash-generator produces the bcrypt hash for the admin API secret.
// The output goes into LINGO_AUTH_ADMIN_SECRET_HASH (auth.admin_secret_hash).
//
// Usage:
//
//	hash-generator 'the admin secret'
//	echo -n 'the admin secret' | hash-generator
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	secret, err := readSecret()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read secret: %v\n", err)
		os.Exit(1)
	}
	if secret == "" {
		fmt.Fprintln(os.Stderr, "secret must not be empty")
		os.Exit(1)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate hash: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(string(hash))
}

func readSecret() (string, error) {
	if len(os.Args) > 1 {
		return os.Args[1], nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
