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
	"k8s.io/klog"
)

func componentPartial(seg *Segment, s uint32) bool {
	for _, sub := range []*LogicalVolume{seg.DataLV(s), seg.MetaLV(s)} {
		if sub != nil && (sub.Is(Partial) || sub.IsVirtual()) {
			return true
		}
	}
	return false
}

// partialRaidRedundant fails when the partial raid lv lost more images than
// its layout tolerates.
func partialRaidRedundant(lv *LogicalVolume) error {
	seg := lv.FirstSegment()
	if seg.Type.IsAnyRaid10() {
		if raid10CopiesLost(seg, func(s uint32) bool { return componentPartial(seg, s) }) {
			return preconditionErrorf("An entire mirror group has failed in %s.", lv)
		}
		return nil
	}
	var failed uint32
	for s := uint32(0); s < seg.AreaCount(); s++ {
		if componentPartial(seg, s) {
			failed++
		}
	}
	switch {
	case failed > 0 && seg.Type.IsAnyRaid0():
		return preconditionErrorf("No components of raid LV %s may fail", lv)
	case failed == seg.AreaCount():
		return preconditionErrorf("All components of raid LV %s have failed.", lv)
	case seg.Type.ParityDevs > 0 && failed > seg.Type.ParityDevs:
		return preconditionErrorf("More than %d components from %s %s have failed.", seg.Type.ParityDevs, seg.Type, lv)
	}
	return nil
}

func degradedActivationCapable(lv *LogicalVolume) error {
	if !lv.Is(Partial) {
		return nil
	}
	if lv.IsRaidSub() {
		return nil
	}
	if lv.IsRaid() {
		return partialRaidRedundant(lv)
	}
	for _, seg := range lv.Segments {
		for _, a := range seg.Areas {
			if a.Kind != AreaLV {
				return preconditionErrorf("%s contains a segment incapable of degraded activation", lv)
			}
		}
	}
	return nil
}

// SupportsDegradedActivation returns nil when the partial lv and all its
// sub volumes can be activated without losing data.
func SupportsDegradedActivation(lv *LogicalVolume) error {
	if err := degradedActivationCapable(lv); err != nil {
		klog.V(2).Infof("%v", err)
		return err
	}
	for _, sub := range lv.subLVs() {
		if err := degradedActivationCapable(sub); err != nil {
			klog.V(2).Infof("%v", err)
			return err
		}
	}
	return nil
}
