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

package alloc

import (
	"fmt"
	"strings"

	"github.com/aleofreddi/lvmraid/pkg/raid"
	pmath "github.com/pkg/math"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"k8s.io/klog"
)

// run is a free extent range of a physical volume.
type run struct {
	pe, len uint32
}

// freeMap holds the free runs of every device in ascending order.
type freeMap map[string][]run

// FirstFit grants each area from a single device, taking the lowest free
// extents first. Areas of one request never share a device.
type FirstFit struct{}

func New() *FirstFit {
	return &FirstFit{}
}

func (*FirstFit) Allocate(vg *raid.VolumeGroup, req raid.AllocationRequest) (*raid.Allocation, error) {
	if req.Areas == 0 || req.AreaExtents == 0 {
		return nil, status.Errorf(codes.Internal, "empty allocation request %+v", req)
	}
	free := buildFreeMap(vg)
	candidates := candidatePVs(vg, free, req)
	need := req.AreaExtents + req.MetaExtents
	klog.V(4).Infof("Allocating %d area(s) of %d+%d extents out of %v", req.Areas, req.AreaExtents, req.MetaExtents, candidates)

	res := &raid.Allocation{}
	for a := uint32(0); a < req.Areas; a++ {
		pv := pickPV(free, candidates, need)
		if pv == "" {
			return nil, status.Errorf(codes.ResourceExhausted,
				"Insufficient suitable allocatable extents: %d area(s) of %d extents needed, only %d granted", req.Areas, need, a)
		}
		candidates = remove(candidates, pv)
		if req.MetaExtents > 0 {
			// Metadata goes first so it precedes its image on disk.
			res.Meta = append(res.Meta, take(free, pv, req.MetaExtents))
		}
		res.Data = append(res.Data, take(free, pv, req.AreaExtents))
	}
	return res, nil
}

// buildFreeMap subtracts every mapped physical extent of vg from its
// devices.
func buildFreeMap(vg *raid.VolumeGroup) freeMap {
	used := map[string][]run{}
	for _, lv := range vg.LVs() {
		for _, seg := range lv.Segments {
			for _, a := range seg.Areas {
				if a.Kind == raid.AreaPV {
					used[a.PV] = append(used[a.PV], run{a.PE, seg.AreaLen})
				}
			}
		}
	}
	free := freeMap{}
	for _, pv := range vg.PVs {
		free[pv.Name] = invert(used[pv.Name], pv.PECount)
	}
	return free
}

// invert returns the gaps between the used runs within [0, size).
func invert(used []run, size uint32) []run {
	starts := make(map[uint32]uint32, len(used))
	for _, r := range used {
		starts[r.pe] = pmath.MaxUint32(starts[r.pe], r.len)
	}
	keys := maps.Keys(starts)
	slices.Sort(keys)

	var gaps []run
	var next uint32
	for _, pe := range keys {
		if pe > next {
			gaps = append(gaps, run{next, pe - next})
		}
		next = pmath.MaxUint32(next, pe+starts[pe])
	}
	if next < size {
		gaps = append(gaps, run{next, size - next})
	}
	return gaps
}

func candidatePVs(vg *raid.VolumeGroup, free freeMap, req raid.AllocationRequest) []string {
	var out []string
	for _, pv := range vg.PVs {
		switch {
		case pv.Missing, pv.NoAlloc:
			continue
		case len(req.PVs) > 0 && !slices.Contains(req.PVs, pv.Name):
			continue
		case slices.Contains(req.Avoid, pv.Name):
			continue
		}
		out = append(out, pv.Name)
	}
	return out
}

// pickPV returns the first candidate with need free extents, preferring
// one holding them contiguously.
func pickPV(free freeMap, candidates []string, need uint32) string {
	fallback := ""
	for _, pv := range candidates {
		var total uint32
		for _, r := range free[pv] {
			if r.len >= need {
				return pv
			}
			total += r.len
		}
		if fallback == "" && total >= need {
			fallback = pv
		}
	}
	return fallback
}

// take removes n extents from the free runs of pv, lowest first.
func take(free freeMap, pv string, n uint32) []raid.Extent {
	runs := free[pv]
	for i, r := range runs {
		if r.len >= n {
			// Contiguous fit.
			runs[i] = run{r.pe + n, r.len - n}
			free[pv] = compact(runs)
			return []raid.Extent{{PV: pv, PE: r.pe, Len: n}}
		}
	}
	var out []raid.Extent
	for i := range runs {
		if n == 0 {
			break
		}
		l := pmath.MinUint32(runs[i].len, n)
		out = append(out, raid.Extent{PV: pv, PE: runs[i].pe, Len: l})
		runs[i].pe += l
		runs[i].len -= l
		n -= l
	}
	free[pv] = compact(runs)
	return out
}

func compact(runs []run) []run {
	out := runs[:0]
	for _, r := range runs {
		if r.len > 0 {
			out = append(out, r)
		}
	}
	return out
}

func remove(list []string, s string) []string {
	if i := slices.Index(list, s); i >= 0 {
		return slices.Delete(list, i, i+1)
	}
	return list
}

// Dump renders the free map of vg. Useful for debugging.
func Dump(vg *raid.VolumeGroup) string {
	var sb strings.Builder
	free := buildFreeMap(vg)
	for _, pv := range vg.PVs {
		sb.WriteString(fmt.Sprintf("%s:", pv.Name))
		for _, r := range free[pv.Name] {
			sb.WriteString(fmt.Sprintf(" %d+%d", r.pe, r.len))
		}
		sb.WriteRune('\n')
	}
	return sb.String()
}
