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

package raid

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"k8s.io/klog"
)

const internalPrefix = "Internal error: "

// internalErrorf reports a violated model invariant.
func internalErrorf(format string, args ...interface{}) error {
	msg := internalPrefix + fmt.Sprintf(format, args...)
	klog.Error(msg)
	return status.Error(codes.Internal, msg)
}

func usageErrorf(format string, args ...interface{}) error {
	return status.Errorf(codes.InvalidArgument, format, args...)
}

func preconditionErrorf(format string, args ...interface{}) error {
	return status.Errorf(codes.FailedPrecondition, format, args...)
}

func unsupportedErrorf(format string, args ...interface{}) error {
	return status.Errorf(codes.Unimplemented, format, args...)
}

func exhaustedErrorf(format string, args ...interface{}) error {
	return status.Errorf(codes.ResourceExhausted, format, args...)
}

// transactionErrorf wraps a collaborator failure after the model changed.
func transactionErrorf(err error, format string, args ...interface{}) error {
	return status.Errorf(codes.Unavailable, "%s: %v", fmt.Sprintf(format, args...), err)
}

// wrapErrorf prefixes err keeping its code.
func wrapErrorf(err error, format string, args ...interface{}) error {
	code := status.Code(err)
	if code == codes.Unknown || code == codes.OK {
		code = codes.Internal
	}
	return status.Errorf(code, "%s: %s", fmt.Sprintf(format, args...), status.Convert(err).Message())
}

func abortedErrorf(format string, args ...interface{}) error {
	return status.Errorf(codes.Aborted, format, args...)
}
