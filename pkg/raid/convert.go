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

	"k8s.io/klog"
)

// ConvertRequest describes the layout an lv should be converted to. Zero
// values keep the current setting.
type ConvertRequest struct {
	Type       *SegmentType
	ImageCount uint32
	DataCopies uint32
	Stripes    uint32
	StripeSize uint32
	Yes        bool
	Force      bool
	Duplicate  bool
	PVs        []string
}

type Outcome int

const (
	// Unchanged means lv already had the requested layout.
	Unchanged Outcome = iota
	Converted
)

func (o Outcome) String() string {
	if o == Converted {
		return "converted"
	}
	return "unchanged"
}

// Convert takes lv over to the layout of req, reshapes it or converts it
// through a duplicating raid1 layer.
func (e *Engine) Convert(ctx context.Context, lv *LogicalVolume, req ConvertRequest) (Outcome, error) {
	e.begin(lv.vg)
	seg := lv.FirstSegment()
	if seg == nil {
		return Unchanged, internalErrorf("LV %s has no segments", lv)
	}
	newType := req.Type
	if newType == nil {
		newType = seg.Type
	}
	count := req.ImageCount
	stripes := req.Stripes
	stripeSize := req.StripeSize

	if !(seg.Type.IsStriped() || seg.Type.IsMirror() || seg.Type.IsRaid()) ||
		!(newType.IsStriped() || newType.IsMirror() || newType.IsRaid()) {
		return Unchanged, unsupportedErrorf("Converting the segment type for %s (directly) from %s to %s is not supported.",
			lv, segtypeName(seg.Type, seg.AreaCount()), newType)
	}

	if count == 0 {
		count = seg.AreaCount()
	}
	if err := e.checkMaxRaidDevices(count); err != nil {
		return Unchanged, err
	}
	switch {
	case count == 1 && newType == seg.Type:
		newType = Striped
	case lv.IsLinear() && newType == seg.Type && count > 1:
		newType = Raid1
	}
	if stripeSize == 0 {
		stripeSize = seg.StripeSize
	}
	if stripes == 0 {
		stripes = seg.DataImageCount()
	}

	if !e.isActive(ctx, lv) {
		return Unchanged, preconditionErrorf("%s must be active to perform this operation.", lv)
	}

	a := &takeoverArgs{
		newType:    newType,
		yes:        req.Yes,
		force:      req.Force,
		imageCount: count,
		dataCopies: req.DataCopies,
		stripes:    stripes,
		stripeSize: stripeSize,
		pvs:        req.PVs,
	}

	if IsDuplicating(lv) {
		if err := e.duplicate(ctx, lv, a); err != nil {
			if !IsDuplicating(lv) {
				logPossibleConversions(lv)
			}
			return Unchanged, err
		}
		return e.converted(lv)
	}

	if !req.Duplicate {
		switch r, err := reshapeRequested(lv, newType, req.Stripes, req.StripeSize); r {
		case reshapeWanted:
			if !e.inSync(ctx, lv) {
				return Unchanged, preconditionErrorf("Unable to convert %s while it is not in-sync", lv)
			}
			if req.Stripes != 0 && seg.Type != newType {
				return Unchanged, usageErrorf("Can't reshape and takeover %s at the same time", lv)
			}
			if err := e.reshape(ctx, lv, newType, req.Yes, req.Force, stripes, stripeSize, req.PVs); err != nil {
				return Unchanged, err
			}
			return e.converted(lv)
		case reshapeRefused:
			return Unchanged, err
		}
	}

	if count <= 1 {
		count = stripes
	}
	if stripes != seg.DataImageCount() {
		count = stripes + newType.ParityDevs
	}
	if !newType.IsRaid() {
		stripes = req.Stripes
		if stripes == 0 {
			stripes = 1
		}
	}
	a.imageCount = count
	a.stripes = stripes

	if req.Duplicate {
		if err := e.duplicate(ctx, lv, a); err != nil {
			return Unchanged, err
		}
		return e.converted(lv)
	}

	if newType == seg.Type && count == seg.AreaCount() && stripeSize == seg.StripeSize {
		klog.Warningf("Logical volume %s already is of requested type %s", lv, segtypeName(seg.Type, seg.AreaCount()))
		return Unchanged, nil
	}

	if !e.inSync(ctx, lv) {
		return Unchanged, preconditionErrorf("Unable to convert %s while it is not in-sync", lv)
	}

	fn := takeoverTable[classify(seg.Type, seg.AreaCount())][classify(newType, count)]
	if err := fn(e, ctx, lv, a); err != nil {
		if errors.Is(err, errNoChange) {
			return Unchanged, nil
		}
		logPossibleConversions(lv)
		return Unchanged, err
	}
	return e.converted(lv)
}

func (e *Engine) converted(lv *LogicalVolume) (Outcome, error) {
	klog.Infof("Logical volume %s successfully converted.", lv)
	return Converted, nil
}
