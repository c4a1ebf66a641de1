package search

import (
	"context"
	"fmt"
	"sort"

	"vmpatch/process"

	"golang.org/x/sync/errgroup"
)

// Result is the outcome of a Scan.
type Result struct {
	Matches []process.ProcessMemoryAddress
	// Skipped lists regions that could not be read.
	Skipped []process.AddressRange
}

// Scan reads every region through mem and collects the addresses where aob
// occurs, in ascending order. Matches spanning two regions are not found.
// Up to workers regions are read at once; an unreadable region is skipped,
// not fatal. Scan stops early when ctx is cancelled.
func Scan(ctx context.Context, mem process.Memory, regions []process.AddressRange, aob AOB, workers int) (Result, error) {
	if aob.Len() == 0 || len(aob.Mask) != aob.Len() {
		return Result{}, fmt.Errorf("invalid pattern")
	}
	if workers < 1 {
		workers = 1
	}

	type regionResult struct {
		region  process.AddressRange
		matches []process.ProcessMemoryAddress
		err     error
	}

	inch := make(chan process.AddressRange, len(regions))
	for _, r := range regions {
		inch <- r
	}
	close(inch)

	outch := make(chan regionResult, len(regions))

	g, ctx := errgroup.WithContext(ctx)
	for idx := 0; idx < workers; idx++ {
		g.Go(func() error {
			for r := range inch {
				if err := ctx.Err(); err != nil {
					return err
				}

				data, err := mem.ReadBytes(r)
				if err != nil {
					outch <- regionResult{region: r, err: err}
					continue
				}

				res := regionResult{region: r}
				for _, offset := range aob.Matches(data) {
					res.matches = append(res.matches, r.Start+process.ProcessMemoryAddress(offset))
				}
				outch <- res
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Result{}, fmt.Errorf("scanning: %w", err)
	}
	close(outch)

	var result Result
	for res := range outch {
		if res.err != nil {
			result.Skipped = append(result.Skipped, res.region)
			continue
		}
		result.Matches = append(result.Matches, res.matches...)
	}

	sort.Slice(result.Matches, func(i, j int) bool {
		return result.Matches[i] < result.Matches[j]
	})
	sort.Slice(result.Skipped, func(i, j int) bool {
		return result.Skipped[i].Start < result.Skipped[j].Start
	})

	return result, nil
}
