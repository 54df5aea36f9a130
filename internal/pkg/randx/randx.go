/*
Package randx provides cryptographically secure random identifiers.

Object storage keys use short Base62 ids; connection ids use UUID v4.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the total number of characters in the Base62 character set (62).
	Base62Len = int64(len(Base62Chars))

	// AssetIDLength is the length of generated asset ids.
	AssetIDLength = 20
)

// Base62 returns a random Base62 string of the given length.
func Base62(length int) (string, error) {
	result := make([]byte, length)

	for i := range length {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}

		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// AssetKey builds an object key "<folder>/<random id><ext>" for an uploaded asset.
func AssetKey(folder, ext string) (string, error) {
	id, err := Base62(AssetIDLength)
	if err != nil {
		return "", err
	}

	folder = strings.Trim(folder, "/")
	if folder == "" {
		return id + ext, nil
	}
	return folder + "/" + id + ext, nil
}

// ConnectionID returns a unique identifier for a live connection.
func ConnectionID() string {
	return uuid.New().String()
}

// IsBase62 reports whether s is non-empty and consists only of Base62 characters.
func IsBase62(s string) bool {
	if s == "" {
		return false
	}

	for _, char := range s {
		if !strings.ContainsRune(Base62Chars, char) {
			return false
		}
	}

	return true
}
