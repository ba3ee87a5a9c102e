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
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ctrlplane/devicetransport/registry"
)

// newReplCmd is a deliberately small line-oriented loop, not a full
// line-editing shell: c-bata/go-prompt was considered and dropped (see
// DESIGN.md) since golang.org/x/term already covers the one piece of
// interactive input this binary needs (password entry), and a REPL this
// small doesn't justify a second dependency for history/completion.
func newReplCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "connect_best, then read send/receive/status/switch/sessions/quit commands from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadManifest(opts)
			if err != nil {
				return err
			}
			f := newFactory()
			sessions := registry.New()
			defer sessions.CloseAll()

			tr, entry, err := f.ConnectBest(cmd.Context(), m)
			if err != nil {
				return err
			}
			sessions.Put(entry.ID, tr)
			active := entry.ID

			fmt.Printf("%s connected via %s\n", color.GreenString("OK"), entry.ID)

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					return nil
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				fields := strings.SplitN(line, " ", 2)
				switch fields[0] {
				case "quit", "exit":
					return nil
				case "sessions":
					for _, id := range sessions.IDs() {
						marker := " "
						if id == active {
							marker = "*"
						}
						fmt.Printf("%s %s\n", marker, id)
					}
				case "switch":
					if len(fields) != 2 {
						fmt.Println("usage: switch <entry-id>")
						continue
					}
					target := strings.TrimSpace(fields[1])
					if existing, ok := sessions.Get(target); ok {
						tr, active = existing, target
						fmt.Printf("%s switched to %s (already connected)\n", color.GreenString("OK"), target)
						continue
					}
					e, ok := m.ByID(target)
					if !ok {
						fmt.Println(color.RedString("error: unknown entry %q", target))
						continue
					}
					built, berr := f.Build(e, m.Defaults)
					if berr != nil {
						fmt.Println(color.RedString("error: %v", berr))
						continue
					}
					if cerr := built.Connect(cmd.Context()); cerr != nil {
						fmt.Println(color.RedString("error: %v", cerr))
						continue
					}
					sessions.Put(target, built)
					tr, active = built, target
					fmt.Printf("%s connected via %s\n", color.GreenString("OK"), target)
				case "status":
					st := tr.Stats()
					fmt.Printf("active=%s connected=%v sent=%d received=%d reconnects=%d\n", active, tr.IsConnected(), st.BytesSent, st.BytesReceived, st.ReconnectCount)
				case "send":
					if len(fields) != 2 {
						fmt.Println("usage: send <payload>")
						continue
					}
					if err := tr.Send(cmd.Context(), []byte(fields[1])); err != nil {
						fmt.Println(color.RedString("error: %v", err))
					}
				case "receive":
					out, err := tr.Receive(cmd.Context(), time.Second)
					if err != nil {
						fmt.Println(color.RedString("error: %v", err))
						continue
					}
					fmt.Printf("%q\n", string(out))
				default:
					fmt.Printf("unknown command %q (send/receive/status/switch/sessions/quit)\n", fields[0])
				}
			}
		},
	}
}
