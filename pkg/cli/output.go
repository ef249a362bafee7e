/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package cli

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// OutputFormat represents the output format type.
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatPlain OutputFormat = "plain"
)

// ParseOutputFormat parses a string into an OutputFormat.
func ParseOutputFormat(s string) OutputFormat {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON
	case "plain":
		return FormatPlain
	default:
		return FormatTable
	}
}

// ansiEscape matches the color codes colorize wraps text in.
var ansiEscape = regexp.MustCompile("\033\\[[0-9;]*m")

// visibleLen returns the byte length of s with any ANSI color codes
// stripped. Column widths are computed from this, not len(s), since a
// colorized cell's escape bytes aren't visible width. A multi-byte
// character still counts one per byte.
func visibleLen(s string) int {
	return len(ansiEscape.ReplaceAllString(s, ""))
}

// Table renders raftkv-ctl's status snapshot: a small set of FIELD/VALUE
// rows, in table, JSON, or tab-separated plain form.
type Table struct {
	headers []string
	rows    [][]string
	format  OutputFormat
}

// NewTable creates a new table with the given headers.
func NewTable(headers ...string) *Table {
	return &Table{
		headers: headers,
		rows:    make([][]string, 0),
		format:  FormatTable,
	}
}

// SetFormat sets the output format.
func (t *Table) SetFormat(format OutputFormat) {
	t.format = format
}

// AddRow adds a row to the table.
func (t *Table) AddRow(values ...string) {
	t.rows = append(t.rows, values)
}

// Print outputs the table in the configured format.
func (t *Table) Print() {
	switch t.format {
	case FormatJSON:
		t.printJSON()
	case FormatPlain:
		t.printPlain()
	default:
		t.printTable()
	}
}

func (t *Table) columnWidths() []int {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = visibleLen(h)
	}
	for _, row := range t.rows {
		for i, val := range row {
			if i < len(widths) && visibleLen(val) > widths[i] {
				widths[i] = visibleLen(val)
			}
		}
	}
	return widths
}

func (t *Table) printTable() {
	if len(t.rows) == 0 {
		fmt.Println("(no results)")
		return
	}

	widths := t.columnWidths()
	pad := func(cell string, width int) string {
		return cell + strings.Repeat(" ", width-visibleLen(cell)+2)
	}

	if len(t.headers) > 0 {
		header := make([]string, len(t.headers))
		seps := make([]string, len(t.headers))
		for i, h := range t.headers {
			header[i] = pad(colorize(Bold, h), widths[i])
			seps[i] = strings.Repeat("─", len(h)) + strings.Repeat(" ", widths[i]-len(h)+2)
		}
		fmt.Println(strings.TrimRight(strings.Join(header, ""), " "))
		fmt.Println(strings.TrimRight(strings.Join(seps, ""), " "))
	}

	for _, row := range t.rows {
		cells := make([]string, len(row))
		for i, val := range row {
			if i < len(widths) {
				cells[i] = pad(val, widths[i])
			} else {
				cells[i] = val
			}
		}
		fmt.Println(strings.TrimRight(strings.Join(cells, ""), " "))
	}

	fmt.Printf("\n(%d rows)\n", len(t.rows))
}

func (t *Table) printJSON() {
	result := make([]map[string]string, len(t.rows))
	for i, row := range t.rows {
		rowMap := make(map[string]string)
		for j, val := range row {
			if j < len(t.headers) {
				rowMap[t.headers[j]] = val
			} else {
				rowMap[fmt.Sprintf("col%d", j)] = val
			}
		}
		result[i] = rowMap
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		PrintError("failed to format JSON: %v", err)
		return
	}
	fmt.Println(string(data))
}

func (t *Table) printPlain() {
	for _, row := range t.rows {
		fmt.Println(strings.Join(row, "\t"))
	}
}
