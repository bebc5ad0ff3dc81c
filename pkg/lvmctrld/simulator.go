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
	"sync"

	"github.com/aleofreddi/lvmraid/pkg/raid"
	"github.com/google/uuid"
	"k8s.io/klog"
)

// Simulator stands in for the live devices: every volume is active and in
// sync, and the kernel instantly follows every committed table. A stripe
// removing reshape completes on load, after which the array reports the
// reduced device count until the freed images are dropped. Operations are
// recorded in Log.
type Simulator struct {
	mu     sync.Mutex
	active map[uuid.UUID]bool
	// devices holds the kernel device count of reshaped arrays.
	devices map[uuid.UUID]uint32
	table   tableBuilder
	Log     []string
}

// NewSimulator returns a simulator treating every volume of vg as active.
func NewSimulator(vg *raid.VolumeGroup) *Simulator {
	s := &Simulator{
		active:  map[uuid.UUID]bool{},
		devices: map[uuid.UUID]uint32{},
		table:   tableBuilder{mapperDir: "/dev/mapper", peStart: DefaultPEStart},
	}
	for _, lv := range vg.LVs() {
		s.active[lv.UUID] = true
	}
	return s
}

func (s *Simulator) record(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	klog.V(2).Infof("dry-run: %s", msg)
	s.Log = append(s.Log, msg)
}

func (s *Simulator) IsActive(_ context.Context, lv *raid.LogicalVolume) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[lv.UUID], nil
}

func (s *Simulator) IsActiveExclusive(ctx context.Context, lv *raid.LogicalVolume) (bool, error) {
	return s.IsActive(ctx, lv)
}

func (s *Simulator) Activate(_ context.Context, lv *raid.LogicalVolume) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range stack(lv) {
		table, err := s.table.table(l)
		if err != nil {
			return err
		}
		s.active[l.UUID] = true
		s.trackReshape(l)
		s.record("load %s: %s", l.DMName(), strings.ReplaceAll(table, "\n", "; "))
	}
	return nil
}

// trackReshape updates the kernel device count of lv after a table load.
func (s *Simulator) trackReshape(lv *raid.LogicalVolume) {
	seg := lv.FirstSegment()
	if seg == nil || !seg.Type.IsRaid() {
		delete(s.devices, lv.UUID)
		return
	}
	var minus uint32
	for i := uint32(0); i < seg.AreaCount(); i++ {
		if img := seg.DataLV(i); img != nil && img.Is(raid.ReshapeDeltaMinus) {
			minus++
		}
	}
	switch n, ok := s.devices[lv.UUID]; {
	case minus > 0:
		s.devices[lv.UUID] = seg.AreaCount() - minus
	case ok && seg.AreaCount() <= n:
		delete(s.devices, lv.UUID)
	}
}

func (s *Simulator) deviceCount(lv *raid.LogicalVolume) uint32 {
	if n, ok := s.devices[lv.UUID]; ok {
		return n
	}
	return raid.ImageCount(lv)
}

func (s *Simulator) ActivateExclusive(ctx context.Context, lv *raid.LogicalVolume) error {
	return s.Activate(ctx, lv)
}

func (s *Simulator) Deactivate(_ context.Context, lv *raid.LogicalVolume) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range stack(lv) {
		delete(s.active, l.UUID)
	}
	s.record("remove %s", lv.DMName())
	return nil
}

func (s *Simulator) Suspend(_ context.Context, lv *raid.LogicalVolume) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("suspend %s", lv.DMName())
	return nil
}

func (s *Simulator) Resume(ctx context.Context, lv *raid.LogicalVolume) error {
	return s.Activate(ctx, lv)
}

func (s *Simulator) SyncPercent(context.Context, *raid.LogicalVolume) (float64, error) {
	return 100, nil
}

func (s *Simulator) DeviceCount(_ context.Context, lv *raid.LogicalVolume) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deviceCount(lv), nil
}

func (s *Simulator) DeviceHealth(_ context.Context, lv *raid.LogicalVolume) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Repeat("A", int(s.deviceCount(lv))), nil
}

func (s *Simulator) DataOffsetAndSize(_ context.Context, lv *raid.LogicalVolume) (uint64, uint64, error) {
	var offset uint64
	if seg := lv.FirstSegment(); seg != nil {
		offset = seg.DataOffset
	}
	return offset, uint64(lv.LECount) * uint64(lv.VG().ExtentSize), nil
}

func (s *Simulator) SyncAction(context.Context, *raid.LogicalVolume) (string, error) {
	return "idle", nil
}

func (s *Simulator) Message(_ context.Context, lv *raid.LogicalVolume, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("message %s 0 %s", lv.DMName(), msg)
	return nil
}

func (s *Simulator) WipeFirstSector(_ context.Context, lv *raid.LogicalVolume) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("wipe %s", lv.DMName())
	return nil
}
