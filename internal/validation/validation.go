// Package validation provides argument parsing and checks for the contractscan CLI.
// Nothing here gates requests: the explorer has the final word on every field.
package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/mod/semver"
)

// CompilerVersion derives the plain compiler version from a full solc build name,
// e.g. "v0.8.19+commit.7dd6d404" -> "0.8.19". Prerelease tags are kept
// ("v0.8.20-nightly.2023.4.12+commit.f0c0df2d" -> "0.8.20-nightly.2023.4.12").
func CompilerVersion(fullName string) (string, error) {
	trimmed := strings.TrimSpace(fullName)
	if trimmed == "" {
		return "", errors.New("compiler version cannot be empty")
	}

	// semver library expects version to start with 'v'
	versionWithV := "v" + strings.TrimPrefix(trimmed, "v")
	if !semver.IsValid(versionWithV) {
		return "", fmt.Errorf("invalid compiler version %q: must look like v0.8.19+commit.7dd6d404", fullName)
	}

	// Ensure we have major.minor.patch (not just major or major.minor)
	mainPart := strings.SplitN(strings.SplitN(strings.TrimPrefix(versionWithV, "v"), "+", 2)[0], "-", 2)[0]
	if strings.Count(mainPart, ".") < 2 {
		return "", fmt.Errorf("invalid compiler version %q: must be in format X.Y.Z", fullName)
	}

	// Canonical drops build metadata such as +commit.<hash>
	return strings.TrimPrefix(semver.Canonical(versionWithV), "v"), nil
}

// IsPrerelease reports whether a compiler version is a prerelease/nightly build
func IsPrerelease(v string) bool {
	return semver.Prerelease("v"+strings.TrimPrefix(v, "v")) != ""
}

// ParseLibraries parses Name=address pairs into a library mapping.
// Names may carry a source path prefix ("contracts/Math.sol:Math").
func ParseLibraries(pairs []string) (map[string]string, error) {
	libs := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, addr, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		addr = strings.TrimSpace(addr)
		if !ok || name == "" || addr == "" {
			return nil, fmt.Errorf("invalid library %q: must be Name=address", pair)
		}
		if _, dup := libs[name]; dup {
			return nil, fmt.Errorf("library %q given more than once", name)
		}
		libs[name] = addr
	}
	return libs, nil
}

// LibraryNames returns the library names of libs in sorted order
func LibraryNames(libs map[string]string) []string {
	names := make([]string, 0, len(libs))
	for name := range libs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateAddress checks that addr is a 0x-prefixed 20-byte hex address
func ValidateAddress(addr string) error {
	if len(addr) != 42 {
		return errors.New("invalid address length: must be 42 characters (0x + 40 hex)")
	}
	if !strings.HasPrefix(addr, "0x") && !strings.HasPrefix(addr, "0X") {
		return errors.New("invalid address: must start with 0x")
	}
	// Check hex characters
	for _, c := range addr[2:] {
		isDigit := c >= '0' && c <= '9'
		isLowerHex := c >= 'a' && c <= 'f'
		isUpperHex := c >= 'A' && c <= 'F'
		if !isDigit && !isLowerHex && !isUpperHex {
			return errors.New("invalid address: contains non-hex characters")
		}
	}
	return nil
}
