/*
 * MIT License
 *
 * Copyright (c) 2024 ctrlplane contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

// Package sshauth is the SSH authentication helper external collaborator:
// key resolution, key-type sniffing, encryption detection, and POSIX
// permission validation.
package sshauth

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mitchellh/go-homedir"

	"github.com/ctrlplane/devicetransport/errs"
)

// KeyType identifies the algorithm family of a private key file.
type KeyType string

const (
	Ed25519 KeyType = "Ed25519"
	RSA     KeyType = "Rsa"
	ECDSA   KeyType = "Ecdsa"
	DSA     KeyType = "Dsa"
	Unknown KeyType = "Unknown"
)

// keyFilePreference is the scan order used when no explicit key path is
// given.
var keyFilePreference = []struct {
	file string
	kind KeyType
}{
	{"id_ed25519", Ed25519},
	{"id_rsa", RSA},
	{"id_ecdsa", ECDSA},
	{"id_dsa", DSA},
}

// KeyInfo is the resolved key material the auth helper reports back.
type KeyInfo struct {
	Path        string
	KeyType     KeyType
	IsEncrypted bool
}

// Resolve finds the key to use: explicitPath if non-empty, otherwise the
// first matching file in ~/.ssh under the preference order. Returns
// errs.KindConfigError if the chosen file cannot be stat'ed or read,
// errs.KindPermissionDenied if its mode grants group or other access, or
// errs.KindPermissionDenied if no explicit path is given and no key file
// exists in ~/.ssh (whether a password is configured instead is the
// caller's concern — this function only resolves paths).
func Resolve(explicitPath string) (KeyInfo, errs.Error) {
	if explicitPath != "" {
		return inspect(explicitPath)
	}

	home, err := homedir.Dir()
	if err != nil {
		return KeyInfo{}, errs.Wrap(errs.KindConfigError, "resolve home directory", err)
	}
	sshDir := filepath.Join(home, ".ssh")

	for _, candidate := range keyFilePreference {
		path := filepath.Join(sshDir, candidate.file)
		if _, statErr := os.Stat(path); statErr == nil {
			return inspect(path)
		}
	}

	return KeyInfo{}, errs.New(errs.KindPermissionDenied, "no SSH key found in ~/.ssh")
}

func inspect(path string) (KeyInfo, errs.Error) {
	if permErr := CheckPermissions(path); permErr != nil {
		return KeyInfo{}, permErr
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return KeyInfo{}, errs.Wrap(errs.KindConfigError, "read SSH key file", err)
	}

	return KeyInfo{
		Path:        path,
		KeyType:     sniffKeyType(data),
		IsEncrypted: isEncrypted(data),
	}, nil
}

func sniffKeyType(data []byte) KeyType {
	s := string(data)
	switch {
	case strings.Contains(s, "OPENSSH PRIVATE KEY"):
		// OpenSSH's new format embeds the algorithm name further inside
		// the base64 blob; ssh-keygen-produced ed25519 keys are today's
		// overwhelming majority of this container format.
		return Ed25519
	case strings.Contains(s, "RSA PRIVATE KEY"):
		return RSA
	case strings.Contains(s, "EC PRIVATE KEY"):
		return ECDSA
	case strings.Contains(s, "DSA PRIVATE KEY"):
		return DSA
	}
	return Unknown
}

func isEncrypted(data []byte) bool {
	s := string(data)
	return strings.Contains(s, "ENCRYPTED") || strings.Contains(s, "Proc-Type: 4,ENCRYPTED")
}

// CheckPermissions validates the POSIX file-mode rule for private keys:
// bits 0o077 (group/other any access) must be clear. Windows is unchecked.
func CheckPermissions(path string) errs.Error {
	if runtime.GOOS == "windows" {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return errs.Wrap(errs.KindConfigError, "stat SSH key file", err)
	}

	if info.Mode().Perm()&0o077 != 0 {
		return errs.Newf(errs.KindPermissionDenied, "SSH key file %s is readable by group or other (mode %o)", path, info.Mode().Perm())
	}
	return nil
}
