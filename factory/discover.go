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

package factory

import (
	"context"
	"fmt"
	"time"

	"github.com/ctrlplane/devicetransport/manifest"
	"github.com/ctrlplane/devicetransport/ports"
	"github.com/ctrlplane/devicetransport/transport/udp"
)

const defaultDiscoveryTimeout = 2 * time.Second

// Candidate is one discovered, not-yet-enrolled transport, ready to be
// turned into a manifest.Entry by a caller (e.g. the CLI's discover
// subcommand).
type Candidate struct {
	TransportType string
	Port          string
	Vendor        ports.Vendor
	Addr          string
	Name          string
}

// discoverBroadcastPort is the well-known discovery port used by
// transport/udp.Discover when the manifest doesn't name one explicitly.
const discoverBroadcastPort = 9999

// Discover runs the discovery methods d enables and returns what it
// finds. Manifest discovery toggles are executable, not just
// declarative: serial_scan walks ports.Enumerator, broadcast runs
// transport/udp.Discover.
func (f *Factory) Discover(ctx context.Context, d manifest.Discovery, enum ports.Enumerator) ([]Candidate, error) {
	if !d.Enabled {
		return nil, nil
	}

	var out []Candidate

	if d.SerialScan {
		if enum == nil {
			enum = ports.Default()
		}
		infos, err := enum.List()
		if err != nil {
			return out, fmt.Errorf("factory: serial scan: %w", err)
		}
		for _, info := range infos {
			vendor := ports.VendorUnknown
			if info.USB != nil {
				vendor = ports.IdentifyVendor(info.USB.VendorID)
			}
			out = append(out, Candidate{TransportType: "Serial", Port: info.Name, Vendor: vendor})
		}
	}

	if d.Broadcast {
		deadline := d.Timeout()
		if deadline <= 0 {
			deadline = defaultDiscoveryTimeout
		}
		found, err := udp.Discover(ctx, discoverBroadcastPort, deadline)
		if err != nil {
			return out, fmt.Errorf("factory: broadcast discovery: %w", err)
		}
		for _, disc := range found {
			out = append(out, Candidate{TransportType: "Udp", Addr: disc.Addr.String(), Name: disc.Name})
		}
	}

	return out, nil
}
