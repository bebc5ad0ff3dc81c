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
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"k8s.io/klog"
)

var (
	version string
	commit  string
)

// Exit codes follow the lvm tools.
const (
	exitProcessed      = 0
	exitInvalidCmdLine = 3
	exitInitFailed     = 4
	exitFailed         = 5
)

func main() {
	klog.InitFlags(nil)
	defer klog.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand(flag.CommandLine)
	if err := cmd.ExecuteContext(ctx); err != nil {
		klog.Errorf("%v", status.Convert(err).Message())
		klog.Flush()
		os.Exit(exitCode(err))
	}
	os.Exit(exitProcessed)
}

func exitCode(err error) int {
	switch status.Code(err) {
	case codes.OK:
		return exitProcessed
	case codes.InvalidArgument:
		return exitInvalidCmdLine
	case codes.NotFound, codes.Unavailable:
		return exitInitFailed
	}
	return exitFailed
}
