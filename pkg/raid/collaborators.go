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

import "context"

//go:generate mockgen -destination=../mock/raid.go -package=mock github.com/aleofreddi/lvmraid/pkg/raid Store,Activator,Allocator,Status,Prompter,Wiper

// Store persists volume group metadata transactionally.
type Store interface {
	// Archive snapshots the committed metadata before a destructive change.
	Archive(vg *VolumeGroup) error
	// Write stages the in-memory metadata.
	Write(vg *VolumeGroup) error
	// Commit makes the staged metadata durable.
	Commit(vg *VolumeGroup) error
	// Revert drops the staged metadata.
	Revert(vg *VolumeGroup) error
	Backup(vg *VolumeGroup) error
}

// Activator drives the live device mappings.
type Activator interface {
	IsActive(ctx context.Context, lv *LogicalVolume) (bool, error)
	IsActiveExclusive(ctx context.Context, lv *LogicalVolume) (bool, error)
	Activate(ctx context.Context, lv *LogicalVolume) error
	ActivateExclusive(ctx context.Context, lv *LogicalVolume) error
	Deactivate(ctx context.Context, lv *LogicalVolume) error
	// Suspend and Resume bracket a table reload of lv and its sub volumes.
	Suspend(ctx context.Context, lv *LogicalVolume) error
	Resume(ctx context.Context, lv *LogicalVolume) error
}

// Extent is a contiguous physical extent range.
type Extent struct {
	PV  string
	PE  uint32
	Len uint32
}

// AllocationRequest asks for parallel areas on distinct physical volumes.
type AllocationRequest struct {
	Areas       uint32
	AreaExtents uint32
	// MetaExtents, when non zero, requests one metadata area per data area
	// on the same physical volume.
	MetaExtents uint32
	// PVs restricts the candidates. Empty means every volume group device.
	PVs []string
	// Avoid excludes devices from the candidates.
	Avoid []string
}

// Allocation holds the extents granted per area.
type Allocation struct {
	Data [][]Extent
	Meta [][]Extent
}

type Allocator interface {
	Allocate(vg *VolumeGroup, req AllocationRequest) (*Allocation, error)
}

// Status queries the kernel state of a raid mapping.
type Status interface {
	// SyncPercent reports the resynchronization ratio in percent.
	SyncPercent(ctx context.Context, lv *LogicalVolume) (float64, error)
	DeviceCount(ctx context.Context, lv *LogicalVolume) (uint32, error)
	// DeviceHealth returns one character per image, 'A' meaning alive and
	// in sync.
	DeviceHealth(ctx context.Context, lv *LogicalVolume) (string, error)
	// DataOffsetAndSize returns the data offset and device size in sectors.
	DataOffsetAndSize(ctx context.Context, lv *LogicalVolume) (offset, size uint64, err error)
	SyncAction(ctx context.Context, lv *LogicalVolume) (string, error)
	Message(ctx context.Context, lv *LogicalVolume, msg string) error
}

// Prompter asks the user for confirmation.
type Prompter interface {
	Confirm(prompt string) bool
}

// Wiper zeroes the start of a component device.
type Wiper interface {
	WipeFirstSector(ctx context.Context, lv *LogicalVolume) error
}
