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
	"fmt"
	"regexp"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	devNotFound = []*regexp.Regexp{
		regexp.MustCompile(`(?mi)^\s*device-mapper: \S+ ioctl on \S+\s+failed: No such device or address`),
		regexp.MustCompile(`(?mi)^\s*Device \S+ not found`),
		regexp.MustCompile(`(?mi)^\s*Device does not exist`),
	}
	devExists = regexp.MustCompile(`(?mi)^\s*device-mapper: create ioctl on \S+\s+failed: Device or resource busy`)
	devBusy   = regexp.MustCompile(`(?mi)^\s*device-mapper: remove ioctl on \S+\s+failed: Device or resource busy`)
	badTable  = []*regexp.Regexp{
		regexp.MustCompile(`(?mi)^\s*device-mapper: reload ioctl on \S+\s+failed: Invalid argument`),
		regexp.MustCompile(`(?mi)^\s*device-mapper: table ioctl on \S+\s+failed`),
	}
	msgRefused = regexp.MustCompile(`(?mi)^\s*device-mapper: message ioctl on \S+\s+failed`)
)

// parseDmError classifies a failed dmsetup invocation.
func parseDmError(code int, stdout, stderr []byte) error {
	if code == 0 {
		return nil
	}
	// dmsetup exits with 1 on ioctl failures: anything else is unknown.
	if code != 1 {
		return fmt.Errorf("unexpected error: rc=%d stdout=%q stderr=%q", code, stdout, stderr)
	}
	for _, re := range devNotFound {
		if re.Match(stderr) {
			return status.Errorf(codes.NotFound, "device does not exist")
		}
	}
	if devExists.Match(stderr) {
		return status.Errorf(codes.AlreadyExists, "device already exists")
	}
	if devBusy.Match(stderr) {
		return status.Errorf(codes.FailedPrecondition, "device is in use")
	}
	for _, re := range badTable {
		if re.Match(stderr) {
			return status.Errorf(codes.InvalidArgument, "device table rejected: %s", stderr)
		}
	}
	if msgRefused.Match(stderr) {
		return status.Errorf(codes.FailedPrecondition, "target message rejected: %s", stderr)
	}
	return fmt.Errorf("unexpected error: rc=%d stdout=%q stderr=%q", code, stdout, stderr)
}
