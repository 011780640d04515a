package domain

import (
	"fmt"
	"io"
	"sort"

	"golang.org/x/tools/cover"
)

// AddProfile merges p into the sorted profile list, combining blocks
// for files that appear in both. Count-mode profiles sum their counts;
// set-mode profiles or them together.
func AddProfile(profiles []*cover.Profile, p *cover.Profile) ([]*cover.Profile, error) {
	i := sort.Search(len(profiles), func(i int) bool {
		return profiles[i].FileName >= p.FileName
	})

	if i < len(profiles) && profiles[i].FileName == p.FileName {
		if err := mergeProfiles(profiles[i], p); err != nil {
			return nil, err
		}

		return profiles, nil
	}

	profiles = append(profiles, nil)
	copy(profiles[i+1:], profiles[i:])
	profiles[i] = p

	return profiles, nil
}

func mergeProfiles(into, from *cover.Profile) error {
	if into.Mode != from.Mode {
		return fmt.Errorf("cannot merge profiles with modes %q and %q", into.Mode, from.Mode)
	}

	if len(into.Blocks) != len(from.Blocks) {
		return fmt.Errorf("profiles for %s disagree on block layout", into.FileName)
	}

	for i, block := range from.Blocks {
		dst := &into.Blocks[i]

		if dst.StartLine != block.StartLine || dst.StartCol != block.StartCol ||
			dst.EndLine != block.EndLine || dst.EndCol != block.EndCol {
			return fmt.Errorf("profiles for %s disagree on block %d", into.FileName, i)
		}

		switch into.Mode {
		case "set":
			dst.Count |= block.Count
		default:
			dst.Count += block.Count
		}
	}

	return nil
}

// DumpProfiles writes the merged profiles back out in cover profile
// format, mode line first.
func DumpProfiles(profiles []*cover.Profile, out io.Writer) error {
	if len(profiles) == 0 {
		return nil
	}

	if _, err := fmt.Fprintf(out, "mode: %s\n", profiles[0].Mode); err != nil {
		return err
	}

	for _, p := range profiles {
		for _, block := range p.Blocks {
			_, err := fmt.Fprintf(out, "%s:%d.%d,%d.%d %d %d\n",
				p.FileName,
				block.StartLine, block.StartCol,
				block.EndLine, block.EndCol,
				block.NumStmt, block.Count,
			)
			if err != nil {
				return err
			}
		}
	}

	return nil
}
