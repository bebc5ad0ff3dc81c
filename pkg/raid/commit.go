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

	"k8s.io/klog"
)

// The live mapping is always changed by writing metadata, suspending,
// committing and resuming, in this order. Suspending before the new table
// is loaded can deadlock the device stack.

// updateAndReload makes the in-memory changes to lv durable and live.
func (e *Engine) updateAndReload(ctx context.Context, lv *LogicalVolume) error {
	klog.V(4).Infof("Updating logical volume %s on disk(s)", lv)
	if err := e.writeSuspendCommit(ctx, lv); err != nil {
		return err
	}
	if err := e.act.Resume(ctx, lv); err != nil {
		return transactionErrorf(err, "Problem reactivating logical volume %s", lv)
	}
	e.backup(lv.vg)
	return nil
}

// writeSuspendCommit leaves lv suspended on success.
func (e *Engine) writeSuspendCommit(ctx context.Context, lv *LogicalVolume) error {
	vg := lv.vg
	if err := e.store.Write(vg); err != nil {
		return transactionErrorf(err, "Failed to write changes to %s in %s", lv.Name, vg.Name)
	}
	if err := e.act.Suspend(ctx, lv); err != nil {
		if rerr := e.store.Revert(vg); rerr != nil {
			klog.Errorf("Failed to revert volume group %s: %v", vg.Name, rerr)
		}
		return transactionErrorf(err, "Failed to suspend %s before committing changes", lv)
	}
	if err := e.store.Commit(vg); err != nil {
		return transactionErrorf(err, "Failed to commit changes to %s in %s", lv.Name, vg.Name)
	}
	return nil
}

// resetFlagsPassedToKernel clears the one shot flags of the components of
// lv once they reached the kernel.
func (e *Engine) resetFlagsPassedToKernel(lv *LogicalVolume) (bool, error) {
	const resetFlags = Rebuild | ReshapeDeltaPlus | ReshapeDeltaMinus
	seg := lv.FirstSegment()
	cleared := false
	for s := range seg.Areas {
		sub := seg.DataLV(uint32(s))
		if sub != nil && sub.Status&resetFlags != 0 {
			sub.Status &^= resetFlags
			cleared = true
		}
	}
	if seg.DataOffset != 0 {
		seg.DataOffset = 0
		cleared = true
	}
	if !cleared {
		return false, nil
	}
	if err := e.writeCommit(lv.vg); err != nil {
		return true, wrapErrorf(err, "Failed to clear flags for %s components", lv)
	}
	e.backup(lv.vg)
	return true, nil
}

func (e *Engine) deactivateAndRemove(ctx context.Context, vg *VolumeGroup, lvs []*LogicalVolume) error {
	for _, lv := range lvs {
		if err := e.act.Deactivate(ctx, lv); err != nil {
			return transactionErrorf(err, "Failed to deactivate %s", lv)
		}
		klog.V(2).Infof("Removing %s", lv)
		vg.RemoveLV(lv)
	}
	return nil
}

// eliminateExtracted removes the staged volumes and commits vg.
func (e *Engine) eliminateExtracted(ctx context.Context, vg *VolumeGroup, removal []*LogicalVolume) error {
	if len(removal) == 0 {
		return nil
	}
	if err := e.deactivateAndRemove(ctx, vg, removal); err != nil {
		return err
	}
	if err := e.writeCommit(vg); err != nil {
		return err
	}
	if err := e.store.Backup(vg); err != nil {
		klog.Errorf("Backup of VG %s failed after removal of image component LVs", vg.Name)
	}
	return nil
}

// updateAndReloadEliminate reloads lv, drops the removal list and clears
// the flags consumed by the kernel, reloading again if any was set.
func (e *Engine) updateAndReloadEliminate(ctx context.Context, lv *LogicalVolume, removal []*LogicalVolume) error {
	klog.V(4).Infof("Updating metadata and reloading mappings for %s,", lv)
	if err := e.updateAndReload(ctx, lv); err != nil {
		return err
	}
	if err := e.eliminateExtracted(ctx, lv.vg, removal); err != nil {
		return err
	}
	klog.V(4).Infof("Clearing any flags for %s passed to the kernel.", lv)
	cleared, err := e.resetFlagsPassedToKernel(lv)
	if err != nil {
		return err
	}
	if cleared {
		return e.updateAndReload(ctx, lv)
	}
	return nil
}

// clearLVs zeroes the first sector of every volume of lvs. A stale raid
// superblock always lives there.
func (e *Engine) clearLVs(ctx context.Context, lvs []*LogicalVolume) error {
	if len(lvs) == 0 {
		klog.V(4).Infof("Empty list of LVs given for clearing")
		return nil
	}
	for _, lv := range lvs {
		if !lv.Is(Visible) {
			return internalErrorf("LVs must be set visible before clearing")
		}
	}
	if err := e.writeCommit(lvs[0].vg); err != nil {
		return err
	}
	for _, lv := range lvs {
		if err := e.clearLV(ctx, lv); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) clearLV(ctx context.Context, lv *LogicalVolume) error {
	wasActive := e.isActive(ctx, lv)
	lv.Status |= Temporary
	if !wasActive {
		if err := e.act.Activate(ctx, lv); err != nil {
			return transactionErrorf(err, "Failed to activate localy %s for clearing", lv)
		}
	}
	lv.Status &^= Temporary

	klog.V(2).Infof("Clearing metadata area of %s", lv)
	if err := e.wiper.WipeFirstSector(ctx, lv); err != nil {
		return transactionErrorf(err, "Failed to zero %s", lv)
	}
	if !wasActive {
		if err := e.act.Deactivate(ctx, lv); err != nil {
			return transactionErrorf(err, "Failed to deactivate %s", lv)
		}
	}
	return nil
}
