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
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newSendCmd(opts *rootOptions) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "send <entry-id> <payload>",
		Short: "Connect to one entry, send a payload, print whatever it replies with",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadManifest(opts)
			if err != nil {
				return err
			}
			e, ok := m.ByID(args[0])
			if !ok {
				return fmt.Errorf("no such entry %q", args[0])
			}
			if err := promptPasswordIfNeeded(&e); err != nil {
				return err
			}

			f := newFactory()
			tr, err := f.Build(e, m.Defaults)
			if err != nil {
				return err
			}
			defer tr.CleanupResources()

			if cerr := tr.Connect(cmd.Context()); cerr != nil {
				return cerr
			}

			out, serr := tr.Transact(cmd.Context(), []byte(args[1]), timeout)
			if serr != nil {
				return serr
			}

			fmt.Printf("%s %q\n", color.CyanString("<-"), string(out))
			return nil
		},
	}
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", time.Second, "receive timeout")
	return cmd
}
