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

package main

import (
	"fmt"

	"github.com/aleofreddi/lvmraid/pkg/raid"
	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"k8s.io/utils/pointer"
)

// convertOptions holds the convert flags; unset numeric flags are nil.
type convertOptions struct {
	segType    string
	mirrors    *int32
	stripes    *int32
	stripeSize *int32
	dataCopies *int32
	duplicate  bool
}

func (c *convertOptions) request(o *options, lv *raid.LogicalVolume, pvs []string) (raid.ConvertRequest, error) {
	req := raid.ConvertRequest{
		Yes:       o.yes,
		Force:     o.force,
		Duplicate: c.duplicate,
		PVs:       pvs,
	}
	if c.segType != "" {
		t, err := raid.LookupSegmentType(c.segType)
		if err != nil {
			return req, err
		}
		req.Type = t
	}
	for _, v := range []*int32{c.mirrors, c.stripes, c.stripeSize, c.dataCopies} {
		if pointer.Int32Deref(v, 0) < 0 {
			return req, status.Errorf(codes.InvalidArgument, "negative values are not allowed")
		}
	}
	if c.mirrors != nil {
		req.ImageCount = uint32(*c.mirrors) + 1
	}
	req.Stripes = uint32(pointer.Int32Deref(c.stripes, 0))
	req.StripeSize = uint32(pointer.Int32Deref(c.stripeSize, 0))
	req.DataCopies = uint32(pointer.Int32Deref(c.dataCopies, 0))
	if req.Type == nil && req.ImageCount == 0 && req.Stripes == 0 && req.StripeSize == 0 {
		return req, status.Errorf(codes.InvalidArgument, "nothing to convert on %s: use --type, --mirrors, --stripes or --stripesize", lv)
	}
	return req, nil
}

// imageCountOnly reports whether the request only changes the image count
// of a raid1 volume.
func (c *convertOptions) imageCountOnly(lv *raid.LogicalVolume) bool {
	seg := lv.FirstSegment()
	return c.segType == "" && c.mirrors != nil && c.stripes == nil && c.stripeSize == nil &&
		!c.duplicate && seg != nil && seg.Type.IsRaid1() && !raid.IsDuplicating(lv)
}

func newConvertCommand(o *options) *cobra.Command {
	c := &convertOptions{}
	var mirrors, stripes, stripeSize, dataCopies int32
	cmd := &cobra.Command{
		Use:   "convert LV [PV...]",
		Short: "Change the layout of a logical volume",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			for name, p := range map[string]**int32{"mirrors": &c.mirrors, "stripes": &c.stripes, "stripesize": &c.stripeSize, "data-copies": &c.dataCopies} {
				if flags.Changed(name) {
					v, _ := flags.GetInt32(name)
					*p = pointer.Int32(v)
				}
			}
			return o.withLV(cmd, args, func(s *session, lv *raid.LogicalVolume) error {
				pvs := args[1:]
				if c.imageCountOnly(lv) {
					if *c.mirrors < 0 {
						return status.Errorf(codes.InvalidArgument, "negative values are not allowed")
					}
					return s.run("change-image-count", lv, func() error {
						return s.engine.ChangeImageCount(cmd.Context(), lv, uint32(*c.mirrors)+1, pvs)
					})
				}
				req, err := c.request(o, lv, pvs)
				if err != nil {
					return err
				}
				return s.run("convert", lv, func() error {
					outcome, err := s.engine.Convert(cmd.Context(), lv, req)
					if err == nil {
						fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", lv, outcome)
					}
					return err
				})
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&c.segType, "type", "", "target segment type")
	f.Int32VarP(&mirrors, "mirrors", "m", 0, "number of additional mirror images")
	f.Int32VarP(&stripes, "stripes", "i", 0, "number of data stripes")
	f.Int32VarP(&stripeSize, "stripesize", "I", 0, "stripe size in sectors")
	f.Int32Var(&dataCopies, "data-copies", 0, "number of data copies of raid10 and raid01 layouts")
	f.BoolVar(&c.duplicate, "duplicate", false, "convert through a duplicating raid1 layer")
	return cmd
}
