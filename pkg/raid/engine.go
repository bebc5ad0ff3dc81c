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
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"k8s.io/klog"
)

// Engine converts, reshapes and repairs raid logical volumes. It assumes
// exclusive access to the volume group for the duration of every call.
type Engine struct {
	cfg    Config
	store  Store
	act    Activator
	alloc  Allocator
	status Status
	prompt Prompter
	wiper  Wiper
}

func NewEngine(cfg Config, store Store, act Activator, alloc Allocator, status Status, prompt Prompter, wiper Wiper) *Engine {
	return &Engine{
		cfg:    cfg.withDefaults(),
		store:  store,
		act:    act,
		alloc:  alloc,
		status: status,
		prompt: prompt,
		wiper:  wiper,
	}
}

func (e *Engine) Config() Config {
	return e.cfg
}

// begin resets the per operation state of vg.
func (e *Engine) begin(vg *VolumeGroup) {
	vg.archived = false
	releaseAvoidedPVs(vg)
}

// releaseAvoidedPVs makes every device of vg available for allocation.
func releaseAvoidedPVs(vg *VolumeGroup) {
	for _, pv := range vg.PVs {
		pv.NoAlloc = false
	}
}

// archive snapshots vg once per operation.
func (e *Engine) archive(vg *VolumeGroup) error {
	if vg.archived {
		return nil
	}
	if err := e.store.Archive(vg); err != nil {
		return transactionErrorf(err, "Failed to archive volume group %s", vg.Name)
	}
	vg.archived = true
	return nil
}

func (e *Engine) backup(vg *VolumeGroup) error {
	if err := e.store.Backup(vg); err != nil {
		klog.Warningf("Backup of volume group %s metadata failed: %v", vg.Name, err)
		return err
	}
	return nil
}

func (e *Engine) writeCommit(vg *VolumeGroup) error {
	if err := e.store.Write(vg); err != nil {
		return transactionErrorf(err, "Failed to write volume group %s", vg.Name)
	}
	if err := e.store.Commit(vg); err != nil {
		return transactionErrorf(err, "Failed to commit volume group %s", vg.Name)
	}
	return nil
}

// inSync reports whether the mapping of lv is fully resynchronized.
func (e *Engine) inSync(ctx context.Context, lv *LogicalVolume) bool {
	seg := lv.FirstSegment()
	if seg.Type.IsStriped() || seg.Type.IsAnyRaid0() {
		return true
	}
	pct, err := e.status.SyncPercent(ctx, lv)
	if err != nil {
		klog.Errorf("Unable to determine sync status of %s: %v", lv, err)
		return false
	}
	if pct == 0 {
		// The kernel may transiently report 0 on an idle array.
		if pct, err = e.status.SyncPercent(ctx, lv); err != nil {
			klog.Errorf("Unable to determine sync status of %s: %v", lv, err)
			return false
		}
		if pct == 100 {
			klog.Warningf("WARNING: Sync status for %s is inconsistent.", lv)
		}
	}
	return pct == 100
}

// condRepair starts a repair on an idle or frozen array.
func (e *Engine) condRepair(ctx context.Context, lv *LogicalVolume) error {
	action, err := e.status.SyncAction(ctx, lv)
	if err != nil {
		return status.Errorf(codes.Unavailable, "failed to retrieve sync action of %s: %v", lv, err)
	}
	if action != "idle" && action != "frozen" {
		return nil
	}
	if err := e.status.Message(ctx, lv, "repair"); err != nil {
		return status.Errorf(codes.Unavailable, "failed to send repair message to %s: %v", lv, err)
	}
	return nil
}

func (e *Engine) isActive(ctx context.Context, lv *LogicalVolume) bool {
	active, err := e.act.IsActive(ctx, lv)
	if err != nil {
		klog.Errorf("Failed to query activation of %s: %v", lv, err)
		return false
	}
	return active
}

func (e *Engine) isActiveExclusive(ctx context.Context, lv *LogicalVolume) bool {
	active, err := e.act.IsActiveExclusive(ctx, lv)
	if err != nil {
		klog.Errorf("Failed to query activation of %s: %v", lv, err)
		return false
	}
	return active
}

// activateSubPreservingExclusive activates sub with the mode of top.
func (e *Engine) activateSubPreservingExclusive(ctx context.Context, top, sub *LogicalVolume) error {
	var err error
	if e.isActiveExclusive(ctx, top) {
		err = e.act.ActivateExclusive(ctx, sub)
	} else {
		err = e.act.Activate(ctx, sub)
	}
	if err != nil {
		return status.Errorf(codes.Unavailable, "Failed to activate %s: %v", sub, err)
	}
	return nil
}
