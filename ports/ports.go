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

// Package ports is the port-enumerator external collaborator, plus
// USB vendor-ID device identification.
package ports

import (
	"sort"

	"github.com/hootrhino/goserial"
)

// USB describes the optional USB identity of a serial port.
type USB struct {
	VendorID     uint16
	ProductID    uint16
	Manufacturer string
	Product      string
	Serial       string
}

// Info is one enumerated port.
type Info struct {
	Name string
	USB  *USB
}

// Vendor is a recognized USB-serial chipset family.
type Vendor string

const (
	VendorArduino Vendor = "arduino"
	VendorFTDI    Vendor = "ftdi"
	VendorCH340   Vendor = "ch340"
	VendorCP210x  Vendor = "cp210x"
	VendorTeensy  Vendor = "teensy"
	VendorSTM32   Vendor = "stm32"
	VendorUnknown Vendor = ""
)

var vidTable = map[uint16]Vendor{
	0x2341: VendorArduino,
	0x0403: VendorFTDI,
	0x1A86: VendorCH340,
	0x10C4: VendorCP210x,
	0x16C0: VendorTeensy,
	0x0483: VendorSTM32,
}

// IdentifyVendor classifies a USB VID. Unrecognized USB vendors return
// VendorUnknown but are still listed by Enumerator.List.
func IdentifyVendor(vid uint16) Vendor {
	if v, ok := vidTable[vid]; ok {
		return v
	}
	return VendorUnknown
}

// Enumerator lists the system's serial ports: the port enumerator
// external collaborator.
type Enumerator interface {
	List() ([]Info, error)
}

type sysfsEnumerator struct{}

// Default returns the production Enumerator, backed by goserial's port
// listing plus Linux sysfs USB descriptor lookup.
func Default() Enumerator { return sysfsEnumerator{} }

func (sysfsEnumerator) List() ([]Info, error) {
	names, err := goserial.GetPortsList()
	if err != nil {
		return nil, err
	}

	infos := make([]Info, 0, len(names))
	for _, name := range names {
		infos = append(infos, Info{Name: name, USB: usbDescriptorFor(name)})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}
