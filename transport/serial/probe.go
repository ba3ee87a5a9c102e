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

package serial

import (
	"strings"
	"time"

	"github.com/hootrhino/goserial"
)

// ProbeResponses is the set of substrings that count as a positive probe
// reply.
var ProbeResponses = []string{"OK", "ARDUINO", "READY"}

// Probe is a static port-probing helper: open the port at the configured
// baud, write a known probe sequence, and read up to 500ms for a
// response containing one of ProbeResponses.
func Probe(portName string, baudRate int) (bool, error) {
	handle, err := goserial.Open(&goserial.Config{
		Address:  portName,
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   "N",
		StopBits: 1,
		Timeout:  500 * time.Millisecond,
	})
	if err != nil {
		return false, err
	}
	defer handle.Close()

	if _, err := handle.Write([]byte("PROBE\r\n")); err != nil {
		return false, err
	}

	buf := make([]byte, 256)
	n, _ := handle.Read(buf) // timeout-with-no-bytes is not an error on serial
	response := string(buf[:n])

	for _, want := range ProbeResponses {
		if strings.Contains(response, want) {
			return true, nil
		}
	}
	return false, nil
}
