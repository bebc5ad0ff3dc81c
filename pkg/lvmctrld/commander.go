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
	"bytes"
	"context"
	"strings"

	"k8s.io/klog"
	utilexec "k8s.io/utils/exec"
)

type commander interface {
	Exec(ctx context.Context, exe string, args ...string) (code int, stdout, stderr []byte, err error)
}

type execCommander struct {
	exec utilexec.Interface
}

func (c execCommander) Exec(ctx context.Context, exe string, args ...string) (code int, stdout, stderr []byte, err error) {
	klog.V(4).Infof("Running %s %s", exe, strings.Join(args, " "))
	proc := c.exec.CommandContext(ctx, exe, args...)
	stdoutBuf, stderrBuf := new(bytes.Buffer), new(bytes.Buffer)
	proc.SetStdout(stdoutBuf)
	proc.SetStderr(stderrBuf)
	err = proc.Run()
	if exitErr, ok := err.(utilexec.ExitError); ok {
		return exitErr.ExitStatus(), stdoutBuf.Bytes(), stderrBuf.Bytes(), nil
	}
	if err != nil {
		return -1, stdoutBuf.Bytes(), stderrBuf.Bytes(), err
	}
	return 0, stdoutBuf.Bytes(), stderrBuf.Bytes(), nil
}

func NewCommander(exec utilexec.Interface) commander {
	return execCommander{exec: exec}
}
