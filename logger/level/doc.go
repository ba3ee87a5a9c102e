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

/*
Package level defines the severity scale every Logger call is stamped
with.

	Level        Value  String     Code    Use
	PanicLevel   0      Critical   Crit    panic with stack trace
	FatalLevel   1      Fatal      Fatal   process is about to exit
	ErrorLevel   2      Error      Err     operation failed
	WarnLevel    3      Warning    Warn    degraded, continuing
	InfoLevel    4      Info       Info    default fallback
	DebugLevel   5      Debug      Debug   troubleshooting detail
	TraceLevel   6      Trace      Trace   per-frame wire tracing
	NilLevel     7      (empty)    (empty) logging disabled

Parse and ParseFromInt/ParseFromUint32 round-trip these through
configuration files and manifest defaults; Logrus converts a Level for
direct use with a logrus.Logger's SetLevel. NilLevel cannot be parsed
from a string; of the parse functions, only ParseFromInt(7) (and
ParseFromUint32(7)) yield it.
*/
package level
