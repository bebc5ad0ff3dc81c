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

package lvmctrld

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

// fakeCommand is an expected dmsetup invocation and its outcome.
type fakeCommand struct {
	args   []string
	rc     int
	stdout string
	stderr string
}

// dm expects a successful, silent `dmsetup args...`.
func dm(args ...string) fakeCommand {
	return fakeCommand{args: args}
}

func (c fakeCommand) prints(stdout string) fakeCommand {
	c.stdout = stdout
	return c
}

func (c fakeCommand) fails(rc int, stderr string) fakeCommand {
	c.rc, c.stderr = rc, stderr
	return c
}

func (c fakeCommand) String() string {
	return dmsetup + " " + strings.Join(c.args, " ")
}

// fakeRunner replays a fixed dmsetup transcript, failing the test on any
// other invocation.
type fakeRunner struct {
	t *testing.T

	executions []fakeCommand
	current    int
}

func (c *fakeRunner) Exec(_ context.Context, exe string, args ...string) (code int, stdout, stderr []byte, err error) {
	got := fakeCommand{args: args}
	if exe != dmsetup {
		c.t.Errorf("exec: got invocation of %s %v, only %s is expected", exe, args, dmsetup)
		return 255, nil, nil, fmt.Errorf("unexpected executable %s", exe)
	}
	if c.current == len(c.executions) {
		c.t.Errorf("exec: unexpected invocation `%s`", got)
		return 255, nil, nil, fmt.Errorf("unexpected invocation")
	}
	expected := c.executions[c.current]
	if got.String() != expected.String() || len(args) != len(expected.args) {
		c.t.Errorf("exec: got invocation `%s`, expected `%s`", got, expected)
		return 255, nil, nil, fmt.Errorf("unexpected invocation")
	}
	c.current++
	return expected.rc, []byte(expected.stdout), []byte(expected.stderr), nil
}

// done fails the test when expected invocations were not consumed.
func (c *fakeRunner) done() {
	if c.current != len(c.executions) {
		c.t.Errorf("exec: %d expected invocation(s) not performed, next `%s`", len(c.executions)-c.current, c.executions[c.current])
	}
}
