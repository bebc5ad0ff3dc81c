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
	"errors"

	pmath "github.com/pkg/math"
	"k8s.io/klog"
)

// layoutClass is the takeover table index of a segment type.
type layoutClass int

const (
	classLinear layoutClass = iota
	classStriped
	classMirror
	classRaid0
	classRaid0Meta
	classRaid1
	classRaid45
	classRaid6
	classRaid10
	classRaid01
	numLayoutClasses
)

var layoutClassNames = [numLayoutClasses]string{
	"linear", "striped", "mirror", "raid0", "raid0_meta", "raid1", "raid4/5", "raid6", "raid10", "raid01",
}

func (c layoutClass) String() string {
	return layoutClassNames[c]
}

// classify returns the table index of type t with areaCount images. A
// striped type with one area is linear.
func classify(t *SegmentType, areaCount uint32) layoutClass {
	switch {
	case t.IsStriped() && areaCount == 1:
		return classLinear
	case t.IsRaid01():
		return classRaid01
	case t.IsAnyRaid10():
		return classRaid10
	case t.IsAnyRaid6():
		return classRaid6
	case t.IsRaid4() || t.IsAnyRaid5():
		return classRaid45
	case t.IsRaid1():
		return classRaid1
	case t.IsRaid0Meta():
		return classRaid0Meta
	case t.IsRaid0():
		return classRaid0
	case t.IsMirror():
		return classMirror
	case t.IsStriped():
		return classStriped
	}
	return classLinear
}

// takeoverArgs carries a conversion request into the table handlers.
type takeoverArgs struct {
	newType    *SegmentType
	yes        bool
	force      bool
	imageCount uint32
	dataCopies uint32
	stripes    uint32
	stripeSize uint32
	pvs        []string
}

type takeoverFunc func(e *Engine, ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error

// errNoChange is returned by handlers finding lv already converted.
var errNoChange = errors.New("no change")

var (
	noop   takeoverFunc = (*Engine).takeoverNoop
	refuse takeoverFunc = (*Engine).takeoverUnsupported
)

// takeoverTable holds the handler of every from/to layout class pair.
var takeoverTable = [numLayoutClasses][numLayoutClasses]takeoverFunc{
	//               linear                    striped                      mirror                     raid0                       raid0_meta                  raid1                       raid4/5                     raid6                      raid10                      raid01
	classLinear:    {noop, refuse, refuse, (*Engine).linearToRaid0, (*Engine).linearToRaid0, (*Engine).linearToRaid1, (*Engine).linearToRaid45, refuse, (*Engine).linearToRaid10, refuse},
	classStriped:   {refuse, noop, refuse, (*Engine).stripedToRaid0, (*Engine).stripedToRaid0Meta, (*Engine).linearToRaid1, (*Engine).stripedToRaid45, (*Engine).stripedToRaid6, (*Engine).stripedToRaid10, (*Engine).stripedToRaid01},
	classMirror:    {refuse, refuse, noop, (*Engine).mirrorToRaid0, (*Engine).mirrorToRaid0, (*Engine).mirrorToRaid1, (*Engine).mirrorToRaid45, refuse, (*Engine).mirrorToRaid10, refuse},
	classRaid0:     {(*Engine).raid0ToLinear, (*Engine).raid0ToStriped, (*Engine).raid0ToMirror, noop, (*Engine).raid0ToRaid0Meta, (*Engine).raid0ToRaid1, (*Engine).raid0ToRaid45, (*Engine).raid0ToRaid6, (*Engine).raid0ToRaid10, refuse},
	classRaid0Meta: {(*Engine).raid0ToLinear, (*Engine).raid0ToStriped, (*Engine).raid0ToMirror, (*Engine).raid0MetaToRaid0, noop, (*Engine).raid0ToRaid1, (*Engine).raid0ToRaid45, (*Engine).raid0ToRaid6, (*Engine).raid0ToRaid10, refuse},
	classRaid1:     {(*Engine).raid1ToLinear, (*Engine).raid1ToLinear, (*Engine).raid1ToMirror, (*Engine).raid1ToRaid0, (*Engine).raid1ToRaid0, (*Engine).raid1ToRaid1, (*Engine).raid1ToRaid45, refuse, (*Engine).raid1ToRaid10, refuse},
	classRaid45:    {(*Engine).raid45ToLinear, (*Engine).raid45ToStriped, (*Engine).raid45ToMirror, (*Engine).raid45ToStriped, (*Engine).raid45ToStriped, (*Engine).raid45ToRaid1, (*Engine).raid45ToRaid45, (*Engine).raid45ToRaid6, refuse, refuse},
	classRaid6:     {refuse, (*Engine).raid6ToStriped, refuse, (*Engine).raid6ToStriped, (*Engine).raid6ToStriped, refuse, (*Engine).raid6ToRaid45, (*Engine).raid6ToRaid6, refuse, refuse},
	classRaid10:    {(*Engine).raid10ToLinear, (*Engine).raid10ToStriped, (*Engine).raid10ToMirror, (*Engine).raid10ToStriped, (*Engine).raid10ToStriped, (*Engine).raid10ToRaid1, refuse, refuse, refuse, refuse},
	classRaid01:    {refuse, (*Engine).raid01ToStriped, refuse, refuse, refuse, refuse, refuse, refuse, refuse, refuse},
}

func (e *Engine) takeoverNoop(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	seg := lv.FirstSegment()
	klog.Warningf("Logical volume %s already is of requested type %s", lv, segtypeName(seg.Type, seg.AreaCount()))
	return errNoChange
}

func (e *Engine) takeoverUnsupported(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	seg := lv.FirstSegment()
	klog.Errorf("You may want to use the \"--duplicate\" option")
	return unsupportedErrorf("Converting the segment type for %s (directly) from %s to %s is not supported (yet).",
		lv, segtypeName(seg.Type, seg.AreaCount()), a.newType)
}

func hasSegmentsWithAreas(lv *LogicalVolume, n uint32) error {
	for _, seg := range lv.Segments {
		if seg.AreaCount() != n {
			return usageErrorf("Called on %s with segments != %d area", lv, n)
		}
	}
	return nil
}

// requireImages refuses lv unless its first segment has exactly n images.
func requireImages(lv *LogicalVolume, n uint32, to *SegmentType) error {
	seg := lv.FirstSegment()
	if seg.AreaCount() != n {
		return usageErrorf("Can't convert %s from %s to %s with != %d images", lv, seg.Type, to, n)
	}
	return nil
}

// insertRaid0Layer turns a linear lv into a single image raid0 or
// raid0_meta. With deferCommit the segment type is left to the caller.
func (e *Engine) insertRaid0Layer(ctx context.Context, lv *LogicalVolume, newType *SegmentType, imageCount uint32, deferCommit bool) error {
	seg := lv.FirstSegment()
	if (!lv.IsLinear() && !seg.Type.IsAnyRaid0()) || imageCount != 1 {
		return internalErrorf("Can't convert non-(linear|raid0) lv or to image count != 1")
	}
	if err := e.archive(lv.vg); err != nil {
		return err
	}
	if lv.IsLinear() {
		klog.V(4).Infof("Converting logical volume %s to raid", lv)
		var err error
		if seg, err = e.convertLVToRaid1(lv, componentName(lv.Name.String(), RoleRImage, 0)); err != nil {
			return err
		}
	}
	if newType.IsRaid0Meta() && seg.MetaAreas == nil {
		klog.V(4).Infof("Adding raid metadata device to %s", lv)
		if err := e.allocAndAddRmetaDevsForLV(ctx, lv); err != nil {
			return err
		}
	}
	if deferCommit {
		return nil
	}
	seg.Type = newType
	seg.RegionSize = 0
	klog.V(4).Infof("Updating metadata and reloading mappings for %s", lv)
	return e.updateAndReload(ctx, lv)
}

// linearToMultiImage takes a linear or single image raid0 lv over to a
// raid1, raid4/5 or raid10 with count images.
func (e *Engine) linearToMultiImage(ctx context.Context, lv *LogicalVolume, a *takeoverArgs, count uint32) error {
	if (a.newType.IsRaid4() || a.newType.IsAnyRaid5()) && count != 2 {
		return usageErrorf("Can't convert %s from linear to %s != 2 images", lv, a.newType)
	}
	if err := e.confirmConversion(ctx, lv, a.newType, a.yes, count, 0, 0); err != nil {
		return err
	}
	count = pmath.MaxUint32(count, 2)
	if err := e.insertRaid0Layer(ctx, lv, Raid0Meta, 1, true); err != nil {
		return err
	}
	klog.V(4).Infof("Allocating %d additional data and metadata image pairs for %s", count-1, lv)
	if _, err := e.changeImageCount(ctx, lv, a.newType, count, a.pvs); err != nil {
		return err
	}
	seg := lv.FirstSegment()
	seg.Type = a.newType
	switch {
	case a.newType.IsRaid1():
		seg.DataCopies = count
	case a.newType.IsAnyRaid10():
		seg.DataCopies = 2
	}
	// The original image holds the data.
	seg.DataLV(0).Status &^= Rebuild
	return e.updateAndReloadEliminate(ctx, lv, nil)
}

// addParityOrMirrors takes a striped or raid0 lv over to raid4/5/6 or
// raid10 with count images.
func (e *Engine) addParityOrMirrors(ctx context.Context, lv *LogicalVolume, a *takeoverArgs, count uint32) error {
	newType := a.newType
	switch {
	case newType.IsAnyRaid5() && !newType.IsRaid5N():
		klog.Warningf("Overwriting requested raid type %s with %s to allow for conversion", newType, Raid5N)
		newType = Raid5N
	case newType.IsAnyRaid6() && !newType.IsRaid6N6():
		klog.Warningf("Overwriting requested raid type %s with %s to allow for conversion", newType, Raid6N6)
		newType = Raid6N6
	case newType.IsRaid4(), newType.IsRaid5N(), newType.IsRaid6N6(), newType.IsRaid10Near():
	default:
		return unsupportedErrorf("Can't convert %s to %s", lv, newType)
	}
	if err := e.confirmConversion(ctx, lv, newType, a.yes, count, 0, 0); err != nil {
		return err
	}

	seg := lv.FirstSegment()
	switch {
	case seg.Type.IsStriped():
		var err error
		if seg, err = e.convertStripedToRaid0(ctx, lv, true, false); err != nil {
			return err
		}
	case seg.MetaAreas == nil:
		if err := e.raid0AddOrRemoveMetadata(ctx, lv, false, nil); err != nil {
			return err
		}
	}

	klog.V(4).Infof("Adding %d data and metadata image LV pairs to %s", count-seg.AreaCount(), lv)
	if _, err := e.changeImageCount(ctx, lv, newType, count, a.pvs); err != nil {
		return err
	}
	if newType.IsRaid10Near() {
		seg.DataCopies = 2
		klog.V(4).Infof("Reordering areas for raid0 -> raid10 takeover")
		if err := raid10ReorderAreas(seg, reorderToRaid10); err != nil {
			return err
		}
	}
	seg.Type = newType
	return e.updateAndReloadEliminate(ctx, lv, nil)
}

// dropRaid0Layer converts a single image raid0 lv back to linear.
func (e *Engine) dropRaid0Layer(ctx context.Context, lv *LogicalVolume, deferCommit bool) ([]*LogicalVolume, error) {
	if err := e.archive(lv.vg); err != nil {
		return nil, err
	}
	removal, err := convertRaidToLinear(lv, nil)
	if err != nil {
		return nil, err
	}
	if deferCommit {
		return removal, nil
	}
	return nil, e.updateAndReloadEliminate(ctx, lv, removal)
}

// raid1ToAnyRaid0 drops all but the first image of a raid1 lv.
func (e *Engine) raid1ToAnyRaid0(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	seg := lv.FirstSegment()
	if !seg.Type.IsRaid1() {
		return internalErrorf("Can't convert non-raid1 LV %s", lv)
	}
	if err := e.confirmConversion(ctx, lv, a.newType, a.yes, 1, 0, 0); err != nil {
		return err
	}
	seg.Type = a.newType
	removal, err := e.changeImageCount(ctx, lv, a.newType, 1, a.pvs)
	if err != nil {
		return err
	}
	if a.newType.IsRaid0() {
		klog.V(4).Infof("Extracting and renaming metadata LVs from lv %s", lv)
		metas, err := extractList(seg, metaComponent, 0)
		if err != nil {
			return err
		}
		removal = append(removal, metas...)
	}
	seg.DataCopies = 1
	return e.updateAndReloadEliminate(ctx, lv, removal)
}

// dropParity takes raid4, raid5_n or raid6_n_6 over to striped or raid0
// keeping count data images.
func (e *Engine) dropParity(ctx context.Context, lv *LogicalVolume, a *takeoverArgs, count uint32) error {
	seg := lv.FirstSegment()
	if !seg.Type.IsRaid4() && !seg.Type.IsRaid5N() && !seg.Type.IsRaid6N6() {
		return usageErrorf("LV %s has to be of type raid4/raid5_n/raid6_n_6 to allow for this conversion", lv)
	}
	if err := e.confirmConversion(ctx, lv, a.newType, a.yes, count, 0, 0); err != nil {
		return err
	}
	if err := e.freeReshapeSpace(ctx, lv); err != nil {
		return internalErrorf("Failed to free reshape space: %v", err)
	}
	removal, err := e.changeImageCount(ctx, lv, a.newType, count, a.pvs)
	if err != nil {
		return err
	}
	seg.Type = Raid0Meta
	switch {
	case a.newType.IsStriped():
		if removal, err = e.convertRaid0ToStriped(ctx, lv, false, removal); err != nil {
			return err
		}
	case a.newType.IsRaid0():
		if err := e.raid0AddOrRemoveMetadata(ctx, lv, false, &removal); err != nil {
			return err
		}
	case a.newType.IsRaid0Meta():
	default:
		return internalErrorf("Called with wrong new segment type %s", a.newType)
	}
	return e.updateAndReloadEliminate(ctx, lv, removal)
}

// reduceToLinear drops all but one image of a raid1, or a two image
// raid4/5/10, and removes the raid layer.
func (e *Engine) reduceToLinear(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	seg := lv.FirstSegment()
	if seg.AreaCount() > 2 && !seg.Type.IsRaid1() {
		return usageErrorf("Can't convert %s with %d images", lv, seg.AreaCount())
	}
	if err := e.confirmConversion(ctx, lv, Striped, a.yes, 1, 0, 0); err != nil {
		return err
	}
	if err := e.freeReshapeSpace(ctx, lv); err != nil {
		return internalErrorf("Failed to free reshape space: %v", err)
	}
	seg.Type = Raid1
	removal, err := e.changeImageCount(ctx, lv, Raid1, 1, a.pvs)
	if err != nil {
		return err
	}
	if removal, err = convertRaidToLinear(lv, removal); err != nil {
		return err
	}
	return e.updateAndReloadEliminate(ctx, lv, removal)
}

// changeCountAndType sets the image count of a raid1, or adds the second
// parity image of a raid5 going raid6.
func (e *Engine) changeCountAndType(ctx context.Context, lv *LogicalVolume, newType *SegmentType, yes bool, count uint32, pvs []string) error {
	if err := e.confirmConversion(ctx, lv, newType, yes, count, 0, 0); err != nil {
		return err
	}
	removal, err := e.changeImageCount(ctx, lv, newType, count, pvs)
	if err != nil {
		return err
	}
	seg := lv.FirstSegment()
	seg.Type = newType
	if newType.IsRaid1() {
		seg.DataCopies = count
	}
	return e.updateAndReloadEliminate(ctx, lv, removal)
}

// retype switches between layouts sharing the image count, like a two
// image raid1 and raid5 or raid4 and raid5_n.
func (e *Engine) retype(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	seg := lv.FirstSegment()
	if a.imageCount != 0 && a.imageCount != seg.AreaCount() {
		klog.Warningf("Ignoring new image count for %s", lv)
	}
	if err := e.confirmConversion(ctx, lv, a.newType, a.yes, seg.AreaCount(), 0, 0); err != nil {
		return err
	}
	if !a.newType.IsReshapable() {
		if err := e.freeReshapeSpace(ctx, lv); err != nil {
			return internalErrorf("Failed to free reshape space: %v", err)
		}
	}
	switch {
	case a.newType.IsAnyRaid10():
		seg.DataCopies = 2
	case a.newType.IsRaid1():
		seg.DataCopies = seg.AreaCount()
	default:
		seg.DataCopies = 1
	}
	if seg.Type.IsRaid4() && a.newType.IsAnyRaid5() && !a.newType.IsRaid5N() {
		klog.Warningf("Overwriting requested raid type %s with %s to allow for conversion", a.newType, Raid5N)
		seg.Type = Raid5N
	} else {
		seg.Type = a.newType
	}
	return e.updateAndReloadEliminate(ctx, lv, nil)
}

// raid10ToAnyRaid0 drops the mirror copies of a raid10_near lv.
func (e *Engine) raid10ToAnyRaid0(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	seg := lv.FirstSegment()
	if !seg.Type.IsRaid10Near() {
		klog.Errorf("You may want to convert to raid10_near with even number of stripes first")
		return unsupportedErrorf("Can't convert %s LV %s to %s", seg.Type, lv, a.newType)
	}
	if seg.AreaCount()%2 != 0 {
		return usageErrorf("Can't convert %s LV %s with odd number of stripes to %s", seg.Type, lv, a.newType)
	}
	if seg.DataCopies == 0 {
		seg.DataCopies = 2
	}
	count := seg.AreaCount() / seg.DataCopies
	if err := e.confirmConversion(ctx, lv, a.newType, a.yes, count, 0, 0); err != nil {
		return err
	}
	klog.V(4).Infof("Reordering areas for raid10 -> raid0 takeover")
	if err := raid10ReorderAreas(seg, reorderFromRaid10); err != nil {
		return err
	}
	klog.V(4).Infof("Removing data and metadata image LV pairs from %s", lv)
	removal, err := e.changeImageCount(ctx, lv, a.newType, count, a.pvs)
	if err != nil {
		return err
	}
	seg.DataCopies = 1
	switch {
	case !a.newType.IsAnyRaid0():
		seg.Type = Raid0Meta
		if removal, err = e.convertRaid0ToStriped(ctx, lv, false, removal); err != nil {
			return err
		}
	case a.newType.IsRaid0():
		if err := e.raid0AddOrRemoveMetadata(ctx, lv, false, &removal); err != nil {
			return err
		}
	default:
		seg.Type = a.newType
	}
	return e.updateAndReloadEliminate(ctx, lv, removal)
}

func (e *Engine) linearToRaid0(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	if err := hasSegmentsWithAreas(lv, 1); err != nil {
		return err
	}
	return e.insertRaid0Layer(ctx, lv, a.newType, 1, false)
}

func (e *Engine) linearToRaid1(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	if err := hasSegmentsWithAreas(lv, 1); err != nil {
		return err
	}
	return e.linearToMultiImage(ctx, lv, a, a.imageCount)
}

func (e *Engine) linearToRaid45(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	if err := hasSegmentsWithAreas(lv, 1); err != nil {
		return err
	}
	return e.linearToMultiImage(ctx, lv, a, 2)
}

func (e *Engine) linearToRaid10(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	if err := hasSegmentsWithAreas(lv, 1); err != nil {
		return err
	}
	return e.linearToMultiImage(ctx, lv, a, 2)
}

func (e *Engine) stripedToRaid0(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	if err := e.confirmConversion(ctx, lv, a.newType, a.yes, 0, 0, 0); err != nil {
		return err
	}
	_, err := e.convertStripedToRaid0(ctx, lv, false, true)
	return err
}

func (e *Engine) stripedToRaid0Meta(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	if err := e.confirmConversion(ctx, lv, a.newType, a.yes, 0, 0, 0); err != nil {
		return err
	}
	_, err := e.convertStripedToRaid0(ctx, lv, true, true)
	return err
}

func (e *Engine) stripedToRaid45(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	return e.addParityOrMirrors(ctx, lv, a, lv.FirstSegment().AreaCount()+1)
}

func (e *Engine) stripedToRaid6(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	return e.addParityOrMirrors(ctx, lv, a, lv.FirstSegment().AreaCount()+2)
}

func (e *Engine) stripedToRaid10(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	return e.addParityOrMirrors(ctx, lv, a, lv.FirstSegment().AreaCount()*2)
}

func (e *Engine) mirrorToRaid0(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	seg := lv.FirstSegment()
	if !seg.Type.IsMirrored() {
		return internalErrorf("Can't convert non-mirrored segment of lv %s", lv)
	}
	if lv.Is(NotSynced) {
		return preconditionErrorf("Can't convert out-of-sync LV %s use 'lvchange --resync %s' first", lv, lv)
	}
	if err := e.confirmConversion(ctx, lv, a.newType, a.yes, 1, 0, 0); err != nil {
		return err
	}
	removal, err := e.convertMirrorToRaid1(ctx, lv, Raid1, 0, a.pvs, false, nil)
	if err != nil {
		return err
	}
	r, err := e.changeImageCount(ctx, lv, a.newType, 1, a.pvs)
	if err != nil {
		return err
	}
	removal = append(removal, r...)
	if a.newType.IsRaid0() {
		metas, err := extractList(seg, metaComponent, 0)
		if err != nil {
			return err
		}
		removal = append(removal, metas...)
	}
	seg.Type = a.newType
	seg.DataCopies = 1
	return e.updateAndReloadEliminate(ctx, lv, removal)
}

func (e *Engine) mirrorToRaid1(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	if err := e.confirmConversion(ctx, lv, a.newType, a.yes, 0, 0, 0); err != nil {
		return err
	}
	_, err := e.convertMirrorToRaid1(ctx, lv, a.newType, a.imageCount, a.pvs, true, nil)
	return err
}

// convertMirrorRaid45 switches a two image mirror to raid4/5 and back.
func (e *Engine) convertMirrorRaid45(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	seg := lv.FirstSegment()
	if seg.AreaCount() != 2 {
		return usageErrorf("Can't convert %s between mirror and raid4/raid5 with != 2 images", lv)
	}
	if seg.Type.IsMirror() && lv.Is(NotSynced) {
		return preconditionErrorf("Can't convert out-of-sync LV %s use 'lvchange --resync %s' first", lv, lv)
	}
	if err := e.confirmConversion(ctx, lv, a.newType, a.yes, 2, 0, 0); err != nil {
		return err
	}
	var removal []*LogicalVolume
	var err error
	if a.newType.IsMirror() {
		if err := e.freeReshapeSpace(ctx, lv); err != nil {
			return internalErrorf("Failed to free reshape space: %v", err)
		}
		seg.Type = Raid1
		removal, err = e.convertRaid1ToMirror(ctx, lv, a.newType, 2, a.pvs, false, nil)
	} else {
		removal, err = e.convertMirrorToRaid1(ctx, lv, a.newType, 0, a.pvs, false, nil)
	}
	if err != nil {
		return err
	}
	return e.updateAndReloadEliminate(ctx, lv, removal)
}

func (e *Engine) mirrorToRaid45(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	return e.convertMirrorRaid45(ctx, lv, a)
}

func (e *Engine) mirrorToRaid10(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	if err := requireImages(lv, 2, a.newType); err != nil {
		return err
	}
	if lv.Is(NotSynced) {
		return preconditionErrorf("Can't convert out-of-sync LV %s use 'lvchange --resync %s' first", lv, lv)
	}
	if err := e.confirmConversion(ctx, lv, a.newType, a.yes, 2, 0, 0); err != nil {
		return err
	}
	removal, err := e.convertMirrorToRaid1(ctx, lv, a.newType, 0, a.pvs, false, nil)
	if err != nil {
		return err
	}
	lv.FirstSegment().DataCopies = 2
	return e.updateAndReloadEliminate(ctx, lv, removal)
}

func (e *Engine) raid0ToLinear(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	_, err := e.dropRaid0Layer(ctx, lv, false)
	return err
}

func (e *Engine) raid0ToMirror(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	seg := lv.FirstSegment()
	if seg.AreaCount() != 1 {
		return e.takeoverUnsupported(ctx, lv, a)
	}
	count := pmath.MaxUint32(a.imageCount, 2)
	if err := e.checkMaxMirrorDevices(count); err != nil {
		return err
	}
	if err := e.confirmConversion(ctx, lv, a.newType, a.yes, count, 0, 0); err != nil {
		return err
	}
	if seg.MetaAreas == nil {
		if err := e.allocAndAddRmetaDevsForLV(ctx, lv); err != nil {
			return err
		}
	}
	seg.Type = Raid1
	if _, err := e.changeImageCount(ctx, lv, Raid1, count, a.pvs); err != nil {
		return err
	}
	seg.DataLV(0).Status &^= Rebuild
	_, err := e.convertRaid1ToMirror(ctx, lv, a.newType, count, a.pvs, true, nil)
	return err
}

func (e *Engine) raid0ToRaid0Meta(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	if err := e.archive(lv.vg); err != nil {
		return err
	}
	return e.raid0AddOrRemoveMetadata(ctx, lv, true, nil)
}

func (e *Engine) raid0MetaToRaid0(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	if err := e.archive(lv.vg); err != nil {
		return err
	}
	var removal []*LogicalVolume
	return e.raid0AddOrRemoveMetadata(ctx, lv, true, &removal)
}

func (e *Engine) raid0ToStriped(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	if err := e.archive(lv.vg); err != nil {
		return err
	}
	_, err := e.convertRaid0ToStriped(ctx, lv, true, nil)
	return err
}

func (e *Engine) raid0ToRaid1(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	seg := lv.FirstSegment()
	if seg.AreaCount() != 1 {
		return e.takeoverUnsupported(ctx, lv, a)
	}
	count := pmath.MaxUint32(a.imageCount, 2)
	if err := e.checkMaxRaidDevices(count); err != nil {
		return err
	}
	if err := e.confirmConversion(ctx, lv, a.newType, a.yes, count, 0, 0); err != nil {
		return err
	}
	if seg.MetaAreas == nil {
		if err := e.allocAndAddRmetaDevsForLV(ctx, lv); err != nil {
			return err
		}
	}
	seg.Type = a.newType
	if _, err := e.changeImageCount(ctx, lv, a.newType, count, a.pvs); err != nil {
		return err
	}
	seg.DataCopies = count
	seg.DataLV(0).Status &^= Rebuild
	return e.updateAndReloadEliminate(ctx, lv, nil)
}

func (e *Engine) raid0ToRaid45(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	return e.addParityOrMirrors(ctx, lv, a, lv.FirstSegment().AreaCount()+1)
}

func (e *Engine) raid0ToRaid6(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	return e.addParityOrMirrors(ctx, lv, a, lv.FirstSegment().AreaCount()+2)
}

func (e *Engine) raid0ToRaid10(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	return e.addParityOrMirrors(ctx, lv, a, lv.FirstSegment().AreaCount()*2)
}

func (e *Engine) raid1ToLinear(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	return e.reduceToLinear(ctx, lv, a)
}

func (e *Engine) raid1ToMirror(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	if !a.yes && !e.ask("WARNING: Do you really want to convert %s to non-recommended \"%s\" type? [y/n]: ", lv, Mirror) {
		klog.Warningf("Logical volume %s NOT converted to \"%s\"", lv, Mirror)
		return abortedErrorf("Logical volume %s NOT converted to \"%s\"", lv, Mirror)
	}
	if err := ctx.Err(); err != nil {
		return abortedErrorf("Interrupted: %v", err)
	}
	if err := e.archive(lv.vg); err != nil {
		return err
	}
	_, err := e.convertRaid1ToMirror(ctx, lv, a.newType, a.imageCount, a.pvs, true, nil)
	return err
}

func (e *Engine) raid1ToRaid0(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	return e.raid1ToAnyRaid0(ctx, lv, a)
}

func (e *Engine) raid1ToRaid1(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	return e.changeCountAndType(ctx, lv, a.newType, a.yes, a.imageCount, a.pvs)
}

func (e *Engine) raid1ToRaid45(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	if err := requireImages(lv, 2, a.newType); err != nil {
		return err
	}
	return e.retype(ctx, lv, a)
}

func (e *Engine) raid1ToRaid10(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	if err := requireImages(lv, 2, a.newType); err != nil {
		return err
	}
	return e.retype(ctx, lv, a)
}

func (e *Engine) raid45ToLinear(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	if lv.FirstSegment().AreaCount() != 2 {
		return usageErrorf("Can't convert %s from raid4/raid5 to linear with != 2 images", lv)
	}
	return e.reduceToLinear(ctx, lv, a)
}

func (e *Engine) raid45ToStriped(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	return e.dropParity(ctx, lv, a, lv.FirstSegment().AreaCount()-1)
}

func (e *Engine) raid45ToMirror(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	return e.convertMirrorRaid45(ctx, lv, a)
}

func (e *Engine) raid45ToRaid1(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	if err := requireImages(lv, 2, a.newType); err != nil {
		return err
	}
	return e.retype(ctx, lv, a)
}

func (e *Engine) raid45ToRaid45(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	seg := lv.FirstSegment()
	if seg.Type == a.newType {
		return e.takeoverNoop(ctx, lv, a)
	}
	if a.newType.IsRaid4() && !(seg.Type.IsAnyRaid5() && seg.AreaCount() == 2) && !seg.Type.IsRaid5N() {
		klog.Errorf("Convert %s to %s first", lv, Raid5N)
		return usageErrorf("Can't convert %s between %s and %s", lv, seg.Type, Raid4)
	}
	return e.retype(ctx, lv, a)
}

func (e *Engine) raid45ToRaid6(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	seg := lv.FirstSegment()
	if seg.Type.IsRaid4() {
		return usageErrorf("Please convert %s from %s to %s first", lv, Raid4, Raid5N)
	}
	if seg.AreaCount() < 3 {
		return usageErrorf("Please convert %s from 1 stripe to at least 2 with \"lvconvert --stripes 2 %s\" first for this conversion", lv, lv)
	}
	newType := raid5To6(seg.Type)
	if newType == nil {
		return internalErrorf("Failed to get raid5 -> raid6 conversion type")
	}
	if newType != a.newType {
		klog.Warningf("Overwriting requested raid type %s with %s to allow for conversion", a.newType, newType)
	}
	return e.changeCountAndType(ctx, lv, newType, a.yes, seg.AreaCount()+1, a.pvs)
}

func (e *Engine) raid6ToStriped(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	return e.dropParity(ctx, lv, a, lv.FirstSegment().AreaCount()-2)
}

func (e *Engine) raid6ToRaid45(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	seg := lv.FirstSegment()
	if a.newType.IsRaid4() && !seg.Type.IsRaid6N6() {
		return usageErrorf("LV %s has to be of type %s to allow for this conversion", lv, Raid6N6)
	}
	if isRaid6Rotating(seg.Type) {
		return usageErrorf("LV %s has to be of type %s,%s,%s,%s or %s to allow for direct conversion",
			lv, Raid6LS6, Raid6LA6, Raid6RS6, Raid6RA6, Raid6N6)
	}
	count := seg.AreaCount() - 1
	if err := e.confirmConversion(ctx, lv, a.newType, a.yes, count, 0, 0); err != nil {
		return err
	}
	klog.V(4).Infof("Removing one data and metadata image LV pair from %s", lv)
	removal, err := e.changeImageCount(ctx, lv, a.newType, count, a.pvs)
	if err != nil {
		return err
	}
	if a.newType.IsRaid4() {
		seg.Type = Raid4
	} else if seg.Type = raid6To5(seg.Type); seg.Type == nil {
		return internalErrorf("Failed to get raid6 -> raid5 conversion type")
	}
	return e.updateAndReloadEliminate(ctx, lv, removal)
}

func (e *Engine) raid6ToRaid6(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	seg := lv.FirstSegment()
	if seg.Type == a.newType {
		return e.takeoverNoop(ctx, lv, a)
	}
	if err := e.confirmConversion(ctx, lv, a.newType, a.yes, seg.AreaCount(), 0, 0); err != nil {
		return err
	}
	if err := e.allocReshapeSpace(ctx, lv, ReshapeSpaceAnywhere, a.pvs); err != nil {
		return err
	}
	seg.Type = a.newType
	return e.updateAndReloadEliminate(ctx, lv, nil)
}

func (e *Engine) raid10ToLinear(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	if err := requireImages(lv, 2, Striped); err != nil {
		return err
	}
	return e.reduceToLinear(ctx, lv, a)
}

func (e *Engine) raid10ToStriped(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	return e.raid10ToAnyRaid0(ctx, lv, a)
}

func (e *Engine) raid10ToMirror(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	seg := lv.FirstSegment()
	if err := requireImages(lv, 2, a.newType); err != nil {
		return err
	}
	if err := e.confirmConversion(ctx, lv, a.newType, a.yes, seg.AreaCount(), 0, 0); err != nil {
		return err
	}
	seg.Type = Raid1
	removal, err := e.convertRaid1ToMirror(ctx, lv, a.newType, a.imageCount, a.pvs, false, nil)
	if err != nil {
		return err
	}
	return e.updateAndReloadEliminate(ctx, lv, removal)
}

func (e *Engine) raid10ToRaid1(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	if err := hasSegmentsWithAreas(lv, 2); err != nil {
		return err
	}
	if err := e.confirmConversion(ctx, lv, a.newType, a.yes, 2, 0, 0); err != nil {
		return err
	}
	seg := lv.FirstSegment()
	seg.Type = a.newType
	seg.DataCopies = 2
	return e.updateAndReloadEliminate(ctx, lv, nil)
}
