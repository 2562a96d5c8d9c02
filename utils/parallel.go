package utils

import (
	"image"
	"runtime"
	"sync"

	"go.viam.com/utils"
)

// ParallelForEachPixel loops through the image and calls f for each [x, y] position.
// The image is split into horizontal bands, one per available processor thread, and each band is
// handled by its own goroutine. f must be safe to call concurrently for distinct pixels.
func ParallelForEachPixel(size image.Point, f func(x, y int)) {
	procs := runtime.GOMAXPROCS(0)
	if procs > size.Y {
		procs = size.Y
	}
	if procs <= 0 {
		return
	}
	band := size.Y / procs
	var waitGroup sync.WaitGroup
	waitGroup.Add(procs)
	for i := 0; i < procs; i++ {
		startY := i * band
		endY := startY + band
		if i == procs-1 {
			endY = size.Y
		}
		utils.PanicCapturingGo(func() {
			defer waitGroup.Done()
			for y := startY; y < endY; y++ {
				for x := 0; x < size.X; x++ {
					f(x, y)
				}
			}
		})
	}
	waitGroup.Wait()
}
