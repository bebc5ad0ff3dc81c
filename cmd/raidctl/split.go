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
	"github.com/aleofreddi/lvmraid/pkg/raid"
	"github.com/spf13/cobra"
)

func newSplitCommand(o *options) *cobra.Command {
	var name string
	var count uint32
	cmd := &cobra.Command{
		Use:   "split LV [PV...]",
		Short: "Split images off a raid1 logical volume into a new volume",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withLV(cmd, args, func(s *session, lv *raid.LogicalVolume) error {
				return s.run("split", lv, func() error {
					return s.engine.Split(cmd.Context(), lv, name, count, args[1:])
				})
			})
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "name of the split off volume")
	cmd.Flags().Uint32Var(&count, "count", 1, "number of images to split off")
	cmd.MarkFlagRequired("name")
	return cmd
}

func newTrackCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "track LV [PV...]",
		Short: "Split an image off a raid1 logical volume, tracking changes for a later merge",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withLV(cmd, args, func(s *session, lv *raid.LogicalVolume) error {
				return s.run("track", lv, func() error {
					return s.engine.SplitAndTrack(cmd.Context(), lv, args[1:])
				})
			})
		},
	}
}

func newMergeCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "merge IMAGE",
		Short: "Merge a tracked image back into its raid1 logical volume",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withLV(cmd, args, func(s *session, img *raid.LogicalVolume) error {
				return s.run("merge", img, func() error {
					return s.engine.Merge(cmd.Context(), img)
				})
			})
		},
	}
}
