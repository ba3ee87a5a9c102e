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

package main

import (
	"fmt"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ctrlplane/devicetransport/factory"
	"github.com/ctrlplane/devicetransport/manifest"
	"github.com/ctrlplane/devicetransport/transport"
)

func newConnectCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "connect [entry-id]",
		Short: "Connect to one manifest entry, or walk connect_best if none is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadManifest(opts)
			if err != nil {
				return err
			}
			f := newFactory()

			var tr transport.Transport
			var entry manifest.Entry

			if len(args) == 1 {
				e, ok := m.ByID(args[0])
				if !ok {
					return fmt.Errorf("no such entry %q", args[0])
				}
				if err := promptPasswordIfNeeded(&e); err != nil {
					return err
				}
				tr, err = f.Build(e, m.Defaults)
				if err != nil {
					return err
				}
				entry = e
				if cerr := tr.Connect(cmd.Context()); cerr != nil {
					return cerr
				}
			} else {
				tr, entry, err = f.ConnectBest(cmd.Context(), m)
				if err != nil {
					return err
				}
			}
			defer tr.CleanupResources()

			fmt.Printf("%s connected via %s (%s)\n", color.GreenString("OK"), entry.ID, entry.TransportType)
			return nil
		},
	}
}

// promptPasswordIfNeeded fills in an SSH password-auth entry's password
// interactively, no-echo, when the manifest left it blank (passwords are
// never persisted back to disk).
func promptPasswordIfNeeded(e *manifest.Entry) error {
	if e.Connection.Type != "Ssh" || e.Connection.AuthMethod != "Password" || e.Connection.AuthPassword != "" {
		return nil
	}
	fmt.Printf("password for %s@%s: ", e.Connection.Username, e.Connection.Host)
	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	e.Connection.AuthPassword = string(pw)
	return nil
}
