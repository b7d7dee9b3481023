package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Mints an HS256 bearer token accepted by cmd/mockapi. Real API tokens
// come from the vendor's auth flow and live ten hours; this mirrors
// that lifetime.
func main() {
	var secret string
	var sub string
	flag.StringVar(&secret, "secret", "dev-secret", "HS256 secret shared with mockapi")
	flag.StringVar(&sub, "sub", "1234567890", "participant identifier claim")
	flag.Parse()

	claims := jwt.MapClaims{
		"sub": sub,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(10 * time.Hour).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte(secret))
	if err != nil {
		panic(err)
	}
	fmt.Println(s)
}
