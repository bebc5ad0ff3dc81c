// Copyright 2020 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// linePrompter reads y/n answers from a line oriented input.
type linePrompter struct {
	in  *bufio.Reader
	out io.Writer
	yes bool
}

func newLinePrompter(in io.Reader, out io.Writer, yes bool) *linePrompter {
	return &linePrompter{in: bufio.NewReader(in), out: out, yes: yes}
}

func (p *linePrompter) Confirm(prompt string) bool {
	if p.yes {
		fmt.Fprintf(p.out, "%s [y/n]: y\n", prompt)
		return true
	}
	for {
		fmt.Fprintf(p.out, "%s [y/n]: ", prompt)
		line, err := p.in.ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		case "n", "no":
			return false
		}
		if err != nil {
			fmt.Fprintln(p.out)
			return false
		}
	}
}
