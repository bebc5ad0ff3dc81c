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
	"strconv"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// raidStatus is the status line of a dm-raid target:
//
//	<start> <len> raid <raid_type> <#devices> <health> <synced>/<total> <sync_action> <mismatch_cnt> [<data_offset> [<journal>]]
type raidStatus struct {
	Start, Len  uint64
	RaidType    string
	Devices     uint32
	Health      string
	Synced      uint64
	Total       uint64
	SyncAction  string
	MismatchCnt uint64
	DataOffset  uint64
}

// SyncPercent returns the resynchronization ratio in percent.
func (s *raidStatus) SyncPercent() float64 {
	if s.Total == 0 {
		return 0
	}
	if s.Synced >= s.Total {
		return 100
	}
	return float64(s.Synced) * 100 / float64(s.Total)
}

func parseRatio(field string) (uint64, uint64, error) {
	parts := strings.SplitN(field, "/", 2)
	if len(parts) != 2 {
		return 0, 0, status.Errorf(codes.Internal, "malformed sync ratio %q", field)
	}
	cur, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return 0, 0, status.Errorf(codes.Internal, "malformed sync ratio %q: %v", field, err)
	}
	total, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return 0, 0, status.Errorf(codes.Internal, "malformed sync ratio %q: %v", field, err)
	}
	return cur, total, nil
}

func parseUint(field, what string) (uint64, error) {
	v, err := strconv.ParseUint(field, 10, 64)
	if err != nil {
		return 0, status.Errorf(codes.Internal, "malformed %s %q: %v", what, field, err)
	}
	return v, nil
}

// parseRaidStatus parses the first raid line of a dmsetup status output.
func parseRaidStatus(out string) (*raidStatus, error) {
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		f := strings.Fields(line)
		if len(f) < 3 || f[2] != "raid" {
			continue
		}
		if len(f) < 9 {
			return nil, status.Errorf(codes.Internal, "short raid status line %q", line)
		}
		s := &raidStatus{RaidType: f[3], Health: f[5], SyncAction: f[7]}
		var err error
		if s.Start, err = parseUint(f[0], "start"); err != nil {
			return nil, err
		}
		if s.Len, err = parseUint(f[1], "length"); err != nil {
			return nil, err
		}
		devs, err := parseUint(f[4], "device count")
		if err != nil {
			return nil, err
		}
		s.Devices = uint32(devs)
		if uint64(len(s.Health)) != devs {
			return nil, status.Errorf(codes.Internal, "health %q does not match %d devices", s.Health, devs)
		}
		if s.Synced, s.Total, err = parseRatio(f[6]); err != nil {
			return nil, err
		}
		if s.MismatchCnt, err = parseUint(f[8], "mismatch count"); err != nil {
			return nil, err
		}
		if len(f) > 9 {
			if s.DataOffset, err = parseUint(f[9], "data offset"); err != nil {
				return nil, err
			}
		}
		return s, nil
	}
	return nil, status.Errorf(codes.NotFound, "no raid target in status %q", out)
}

// parseMirrorSync returns the sync ratio of a dm-mirror status line:
//
//	<start> <len> mirror <#legs> <dev>... <synced>/<total> ...
func parseMirrorSync(out string) (uint64, uint64, error) {
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		f := strings.Fields(line)
		if len(f) < 4 || f[2] != "mirror" {
			continue
		}
		legs, err := parseUint(f[3], "leg count")
		if err != nil {
			return 0, 0, err
		}
		i := 4 + int(legs)
		if i >= len(f) {
			return 0, 0, status.Errorf(codes.Internal, "short mirror status line %q", line)
		}
		return parseRatio(f[i])
	}
	return 0, 0, status.Errorf(codes.NotFound, "no mirror target in status %q", out)
}
