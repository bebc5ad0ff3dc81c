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
	"strings"

	"github.com/aleofreddi/lvmraid/pkg/raid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"k8s.io/klog"
	utilexec "k8s.io/utils/exec"
)

const dmsetup = "dmsetup"

// Devices drives the device-mapper mappings of logical volumes through
// dmsetup. Tables are generated from the in-memory model, so Resume loads
// whatever the engine committed last.
type Devices struct {
	cmd   commander
	table tableBuilder
}

func NewDevices(exec utilexec.Interface, mapperDir string) *Devices {
	return &Devices{
		cmd:   NewCommander(exec),
		table: tableBuilder{mapperDir: mapperDir, peStart: DefaultPEStart},
	}
}

func (d *Devices) run(ctx context.Context, args ...string) ([]byte, error) {
	code, stdout, stderr, err := d.cmd.Exec(ctx, dmsetup, args...)
	if err != nil {
		return nil, status.Errorf(codes.Unavailable, "failed to run %s: %v", dmsetup, err)
	}
	if code != 0 {
		return nil, parseDmError(code, stdout, stderr)
	}
	return stdout, nil
}

func (d *Devices) exists(ctx context.Context, lv *raid.LogicalVolume) (bool, error) {
	_, err := d.run(ctx, "info", "-c", "--noheadings", "-o", "name", lv.DMName())
	if status.Code(err) == codes.NotFound {
		return false, nil
	}
	return err == nil, err
}

func (d *Devices) IsActive(ctx context.Context, lv *raid.LogicalVolume) (bool, error) {
	return d.exists(ctx, lv)
}

// IsActiveExclusive equals IsActive: mappings are host local.
func (d *Devices) IsActiveExclusive(ctx context.Context, lv *raid.LogicalVolume) (bool, error) {
	return d.exists(ctx, lv)
}

// load creates the mapping of lv or reloads its inactive table.
func (d *Devices) load(ctx context.Context, lv *raid.LogicalVolume) (created bool, err error) {
	table, err := d.table.table(lv)
	if err != nil {
		return false, err
	}
	ok, err := d.exists(ctx, lv)
	if err != nil {
		return false, err
	}
	if !ok {
		klog.V(2).Infof("Creating mapping %s", lv.DMName())
		_, err = d.run(ctx, "create", lv.DMName(), "--table", table)
		return true, err
	}
	klog.V(2).Infof("Reloading mapping %s", lv.DMName())
	_, err = d.run(ctx, "reload", lv.DMName(), "--table", table)
	return false, err
}

// stack returns the sub volumes of lv bottom up followed by lv.
func stack(lv *raid.LogicalVolume) []*raid.LogicalVolume {
	var out []*raid.LogicalVolume
	var walk func(*raid.LogicalVolume)
	walk = func(l *raid.LogicalVolume) {
		for _, seg := range l.Segments {
			for s := range seg.MetaAreas {
				if m := seg.MetaLV(uint32(s)); m != nil {
					walk(m)
				}
			}
			for s := range seg.Areas {
				if sub := seg.DataLV(uint32(s)); sub != nil {
					walk(sub)
				}
			}
			if log := seg.LogLV(); log != nil {
				walk(log)
			}
		}
		out = append(out, l)
	}
	walk(lv)
	return out
}

func (d *Devices) Activate(ctx context.Context, lv *raid.LogicalVolume) error {
	for _, l := range stack(lv) {
		created, err := d.load(ctx, l)
		if err != nil {
			return err
		}
		if !created {
			if _, err := d.run(ctx, "resume", l.DMName()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Devices) ActivateExclusive(ctx context.Context, lv *raid.LogicalVolume) error {
	return d.Activate(ctx, lv)
}

func (d *Devices) Deactivate(ctx context.Context, lv *raid.LogicalVolume) error {
	devs := stack(lv)
	for i := len(devs) - 1; i >= 0; i-- {
		ok, err := d.exists(ctx, devs[i])
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		klog.V(2).Infof("Removing mapping %s", devs[i].DMName())
		if _, err := d.run(ctx, "remove", devs[i].DMName()); err != nil {
			return err
		}
	}
	return nil
}

func (d *Devices) Suspend(ctx context.Context, lv *raid.LogicalVolume) error {
	_, err := d.run(ctx, "suspend", lv.DMName())
	return err
}

// Resume loads the committed tables of lv and its sub volumes and resumes
// them bottom up.
func (d *Devices) Resume(ctx context.Context, lv *raid.LogicalVolume) error {
	return d.Activate(ctx, lv)
}

func (d *Devices) raidStatus(ctx context.Context, lv *raid.LogicalVolume) (*raidStatus, error) {
	out, err := d.run(ctx, "status", lv.DMName())
	if err != nil {
		return nil, err
	}
	return parseRaidStatus(string(out))
}

func (d *Devices) SyncPercent(ctx context.Context, lv *raid.LogicalVolume) (float64, error) {
	out, err := d.run(ctx, "status", lv.DMName())
	if err != nil {
		return 0, err
	}
	if seg := lv.FirstSegment(); seg != nil && seg.Type.IsMirror() {
		cur, total, err := parseMirrorSync(string(out))
		if err != nil {
			return 0, err
		}
		s := raidStatus{Synced: cur, Total: total}
		return s.SyncPercent(), nil
	}
	s, err := parseRaidStatus(string(out))
	if err != nil {
		return 0, err
	}
	return s.SyncPercent(), nil
}

func (d *Devices) DeviceCount(ctx context.Context, lv *raid.LogicalVolume) (uint32, error) {
	s, err := d.raidStatus(ctx, lv)
	if err != nil {
		return 0, err
	}
	return s.Devices, nil
}

func (d *Devices) DeviceHealth(ctx context.Context, lv *raid.LogicalVolume) (string, error) {
	s, err := d.raidStatus(ctx, lv)
	if err != nil {
		return "", err
	}
	return s.Health, nil
}

func (d *Devices) DataOffsetAndSize(ctx context.Context, lv *raid.LogicalVolume) (uint64, uint64, error) {
	s, err := d.raidStatus(ctx, lv)
	if err != nil {
		return 0, 0, err
	}
	return s.DataOffset, s.Len, nil
}

func (d *Devices) SyncAction(ctx context.Context, lv *raid.LogicalVolume) (string, error) {
	s, err := d.raidStatus(ctx, lv)
	if err != nil {
		return "", err
	}
	return s.SyncAction, nil
}

func (d *Devices) Message(ctx context.Context, lv *raid.LogicalVolume, msg string) error {
	args := append([]string{"message", lv.DMName(), "0"}, strings.Fields(msg)...)
	_, err := d.run(ctx, args...)
	return err
}
