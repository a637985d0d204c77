/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
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
 *
 *
 */

package admin

// RemoveGenericEventDups drains a batch of pending events and re-enqueues
// at most one KindAudit and one KindUpdate, keeping the position of that
// kind's first occurrence (so relative order versus other kinds is
// preserved) but the parameters of its last occurrence (latest parameters
// win). Every other kind, KindExec in particular, passes through
// untouched: two distinct exec commands are two distinct actions.
func RemoveGenericEventDups(events []Event) []Event {
	firstPos := make(map[Kind]int)
	out := make([]Event, 0, len(events))

	for _, e := range events {
		if e.Kind != KindAudit && e.Kind != KindUpdate {
			out = append(out, e)
			continue
		}
		if pos, seen := firstPos[e.Kind]; seen {
			out[pos] = e
			continue
		}
		firstPos[e.Kind] = len(out)
		out = append(out, e)
	}
	return out
}

// DrainPending reads every event currently queued on ch without blocking,
// for use immediately after receiving the first event of a batch.
func DrainPending(ch <-chan Event) []Event {
	var out []Event
	for {
		select {
		case e := <-ch:
			out = append(out, e)
		default:
			return out
		}
	}
}
