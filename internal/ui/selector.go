package ui

import (
	"errors"
	"slices"
	"sort"

	"github.com/charmbracelet/huh"

	"github.com/AlejandroGNE/PowerGenome/internal/apperr"
)

// SelectorOption is one choice of the group selector.
type SelectorOption struct {
	Label    string
	Selected bool
}

// RunGroupSelector asks which of the options to keep and returns their
// indexes in option order. Aborting returns apperr.ErrCancelled.
func RunGroupSelector(title string, options []SelectorOption) ([]int, error) {
	if len(options) == 0 {
		return nil, nil
	}
	var selected []int
	opts := make([]huh.Option[int], len(options))
	for i, o := range options {
		opts[i] = huh.NewOption(o.Label, i).Selected(o.Selected)
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[int]().
				Title(title).
				Description("space to toggle, enter to confirm").
				Options(opts...).
				Value(&selected).
				Validate(func(v []int) error {
					if len(v) == 0 {
						return errors.New("select at least one request")
					}
					return nil
				}),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return nil, apperr.ErrCancelled
		}
		return nil, err
	}
	return sortedUnique(selected), nil
}

func sortedUnique(v []int) []int {
	out := append([]int(nil), v...)
	sort.Ints(out)
	return slices.Compact(out)
}
