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
	"testing"

	"github.com/kylelemons/godebug/pretty"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestParseRaidStatus(t *testing.T) {
	tests := []struct {
		name        string
		out         string
		want        *raidStatus
		wantErr     bool
		wantErrCode codes.Code
	}{
		{
			"Raid1 in sync",
			"0 2048 raid raid1 2 AA 2048/2048 idle 0 0 -\n",
			&raidStatus{Start: 0, Len: 2048, RaidType: "raid1", Devices: 2, Health: "AA", Synced: 2048, Total: 2048, SyncAction: "idle"},
			false,
			codes.OK,
		},
		{
			"Raid5 reshaping with data offset",
			"0 16384 raid raid5_ls 3 aaA 1024/8192 reshape 0 4096",
			&raidStatus{Len: 16384, RaidType: "raid5_ls", Devices: 3, Health: "aaA", Synced: 1024, Total: 8192, SyncAction: "reshape", DataOffset: 4096},
			false,
			codes.OK,
		},
		{
			"Old kernel without data offset",
			"0 2048 raid raid1 2 AD 2048/2048 idle 3",
			&raidStatus{Len: 2048, RaidType: "raid1", Devices: 2, Health: "AD", Synced: 2048, Total: 2048, SyncAction: "idle", MismatchCnt: 3},
			false,
			codes.OK,
		},
		{"Short line", "0 2048 raid raid1 2 AA 2048/2048", nil, true, codes.Internal},
		{"Health mismatch", "0 2048 raid raid1 3 AA 2048/2048 idle 0", nil, true, codes.Internal},
		{"Malformed ratio", "0 2048 raid raid1 2 AA 2048 idle 0", nil, true, codes.Internal},
		{"No raid target", "0 2048 linear", nil, true, codes.NotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRaidStatus(tt.out)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseRaidStatus() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if (err != nil) && status.Code(err) != tt.wantErrCode {
				t.Errorf("parseRaidStatus() error code = %v, wantErrCode %v", status.Code(err), tt.wantErrCode)
				return
			}
			if diff := pretty.Compare(got, tt.want); diff != "" {
				t.Errorf("parseRaidStatus() diff (-got +want):\n%s", diff)
			}
		})
	}
}

func TestParseMirrorSync(t *testing.T) {
	tests := []struct {
		name      string
		out       string
		wantCur   uint64
		wantTotal uint64
		wantErr   bool
	}{
		{"Two legs", "0 8192 mirror 2 253:1 253:2 12/16 1 AA 3 disk 253:0 A", 12, 16, false},
		{"Core log", "0 8192 mirror 3 8:16 8:32 8:48 16/16 1 AAA 1 core", 16, 16, false},
		{"Truncated", "0 8192 mirror 2 253:1 253:2", 0, 0, true},
		{"Not a mirror", "0 8192 linear", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cur, total, err := parseMirrorSync(tt.out)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseMirrorSync() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if cur != tt.wantCur || total != tt.wantTotal {
				t.Errorf("parseMirrorSync() got = %d/%d, want %d/%d", cur, total, tt.wantCur, tt.wantTotal)
			}
		})
	}
}

func TestRaidStatus_SyncPercent(t *testing.T) {
	tests := []struct {
		name string
		s    raidStatus
		want float64
	}{
		{"Empty", raidStatus{}, 0},
		{"Half", raidStatus{Synced: 512, Total: 1024}, 50},
		{"Complete", raidStatus{Synced: 1024, Total: 1024}, 100},
		{"Overshoot", raidStatus{Synced: 2048, Total: 1024}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.SyncPercent(); got != tt.want {
				t.Errorf("SyncPercent() = %v, want %v", got, tt.want)
			}
		})
	}
}
