// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kestrelfx/stax/internal/catalog"
)

var elementCmd = &cobra.Command{
	Use:   "element",
	Short: "Manage catalogued elements",
}

var (
	elementAddType    string
	elementAddTags    string
	elementAddComment string
	elementAddFormat  string
)

var elementAddCmd = &cobra.Command{
	Use:   "add <list-id> <name> <source-path>",
	Short: "Catalogue an asset inside a list",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		listID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid list id %q", args[0])
		}
		store, _, err := openStore()
		if err != nil {
			return err
		}
		var tags []string
		if elementAddTags != "" {
			tags = strings.Split(elementAddTags, ",")
		}
		id, err := store.CreateElement(cmd.Context(), catalog.NewElement{
			ListID:       listID,
			Name:         args[1],
			Type:         catalog.ElementType(elementAddType),
			FilepathSoft: args[2],
			Format:       elementAddFormat,
			Comment:      elementAddComment,
			Tags:         tags,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Created element %d: %s\n", id, args[1])
		return nil
	},
}

var (
	elementListDeprecated bool
	elementListLimit      int
	elementListOffset     int
)

var elementListCmd = &cobra.Command{
	Use:   "ls <list-id>",
	Short: "List elements in a list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		listID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid list id %q", args[0])
		}
		store, _, err := openStore()
		if err != nil {
			return err
		}
		elems, err := store.ElementsByList(cmd.Context(), listID, catalog.PageOptions{
			IncludeDeprecated: elementListDeprecated,
			Limit:             elementListLimit,
			Offset:            elementListOffset,
		})
		if err != nil {
			return err
		}
		printElements(elems)
		return nil
	},
}

var (
	searchProperty string
	searchLoose    bool
	searchTags     string
	searchAllTags  bool
)

var elementSearchCmd = &cobra.Command{
	Use:   "search [text]",
	Short: "Search elements by property or tags",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		if searchTags != "" {
			elems, err := store.SearchByTags(cmd.Context(), strings.Split(searchTags, ","), searchAllTags)
			if err != nil {
				return err
			}
			printElements(elems)
			return nil
		}
		if len(args) == 0 {
			return fmt.Errorf("need search text or --tags")
		}
		elems, err := store.SearchElements(cmd.Context(), args[0], searchProperty, searchLoose)
		if err != nil {
			return err
		}
		printElements(elems)
		return nil
	},
}

var elementRemoveCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove an element",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid element id %q", args[0])
		}
		store, _, err := openStore()
		if err != nil {
			return err
		}
		ok, err := store.DeleteElement(cmd.Context(), id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("element %d not found", id)
		}
		fmt.Printf("Removed element %d\n", id)
		return nil
	},
}

func printElements(elems []catalog.Element) {
	for _, e := range elems {
		flags := ""
		if e.IsDeprecated {
			flags = " [deprecated]"
		}
		fmt.Printf("%d\t%s\t%s\t%s%s\n", e.ID, e.Name, e.Type, strings.Join(e.Tags, ","), flags)
	}
}

func init() {
	elementAddCmd.Flags().StringVar(&elementAddType, "type", "2D", "element type (2D|3D|Toolset)")
	elementAddCmd.Flags().StringVar(&elementAddTags, "tags", "", "comma-separated tags")
	elementAddCmd.Flags().StringVar(&elementAddComment, "comment", "", "free-form comment")
	elementAddCmd.Flags().StringVar(&elementAddFormat, "format", "", "file format, e.g. exr")
	elementListCmd.Flags().BoolVar(&elementListDeprecated, "deprecated", false, "include deprecated elements")
	elementListCmd.Flags().IntVar(&elementListLimit, "limit", 0, "page size (0 = all)")
	elementListCmd.Flags().IntVar(&elementListOffset, "offset", 0, "page offset")
	elementSearchCmd.Flags().StringVar(&searchProperty, "property", "name", "property to search (name|format|comment|frame_range|type)")
	elementSearchCmd.Flags().BoolVar(&searchLoose, "loose", true, "substring match instead of exact")
	elementSearchCmd.Flags().StringVar(&searchTags, "tags", "", "comma-separated tags to match instead of text search")
	elementSearchCmd.Flags().BoolVar(&searchAllTags, "all-tags", false, "require every tag instead of any")

	elementCmd.AddCommand(elementAddCmd, elementListCmd, elementSearchCmd, elementRemoveCmd)
	rootCmd.AddCommand(elementCmd)
}
