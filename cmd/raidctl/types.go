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
)

func newTypesCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "types LV",
		Short: "List the segment types a logical volume converts to without duplication",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withLV(cmd, args, func(s *session, lv *raid.LogicalVolume) error {
				out := cmd.OutOrStdout()
				seg := lv.FirstSegment()
				if seg == nil {
					return nil
				}
				fmt.Fprintf(out, "%s: %s, %d image(s), redundancy %d\n", lv, seg.Type.Name, seg.AreaCount(), raid.Redundancy(seg.Type, seg.AreaCount()))
				for _, t := range raid.PossibleConversions(lv) {
					fmt.Fprintf(out, "  %s\n", t.Name)
				}
				return nil
			})
		},
	}
}

func newCheckDegradedCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check-degraded LV",
		Short: "Tell whether a partial logical volume can be activated degraded",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withLV(cmd, args, func(s *session, lv *raid.LogicalVolume) error {
				if err := raid.SupportsDegradedActivation(lv); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s supports degraded activation\n", lv)
				return nil
			})
		},
	}
}
