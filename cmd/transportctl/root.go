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
	"github.com/spf13/cobra"

	"github.com/ctrlplane/devicetransport/factory"
	"github.com/ctrlplane/devicetransport/logger"
	"github.com/ctrlplane/devicetransport/manifest"
)

type rootOptions struct {
	manifestPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "transportctl",
		Short: "Inspect and drive devicetransport's manifest-declared transports",
	}
	root.PersistentFlags().StringVarP(&opts.manifestPath, "manifest", "m", "manifest.toml", "path to the transport manifest TOML file")

	root.AddCommand(
		newListCmd(opts),
		newConnectCmd(opts),
		newSendCmd(opts),
		newDiscoverCmd(opts),
		newReplCmd(opts),
	)
	return root
}

func loadManifest(opts *rootOptions) (*manifest.Manifest, error) {
	return manifest.Load(opts.manifestPath)
}

func newFactory() *factory.Factory {
	return factory.New(logger.Discard(), nil)
}
