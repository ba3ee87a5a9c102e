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

	"github.com/spf13/cobra"

	"github.com/ctrlplane/devicetransport/ports"
)

func newDiscoverCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Run the manifest's enabled discovery methods and list what they find",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadManifest(opts)
			if err != nil {
				return err
			}

			f := newFactory()
			candidates, err := f.Discover(cmd.Context(), m.Discovery, ports.Default())
			if err != nil {
				return err
			}
			if len(candidates) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no candidates found")
				return nil
			}
			for _, c := range candidates {
				switch c.TransportType {
				case "Serial":
					fmt.Fprintf(cmd.OutOrStdout(), "Serial  %-20s vendor=%s\n", c.Port, c.Vendor)
				case "Udp":
					fmt.Fprintf(cmd.OutOrStdout(), "Udp     %-20s name=%s\n", c.Addr, c.Name)
				}
			}
			return nil
		},
	}
}
