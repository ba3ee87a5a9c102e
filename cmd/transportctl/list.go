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

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List manifest entries, highest priority first",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadManifest(opts)
			if err != nil {
				return err
			}

			for _, e := range m.EnabledSortedByPriority() {
				state := color.GreenString("enabled")
				fallback := ""
				if e.Fallback != "" {
					fallback = fmt.Sprintf(" -> %s", e.Fallback)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-8s priority=%-4d %s%s\n", e.ID, e.TransportType, e.Priority, state, fallback)
			}

			for _, e := range m.Transports {
				if e.Enabled {
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-8s priority=%-4d %s\n", e.ID, e.TransportType, e.Priority, color.RedString("disabled"))
			}
			return nil
		},
	}
}
