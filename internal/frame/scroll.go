package frame

// Direction is the result of feeding a wheel event to a ScrollDetector.
type Direction int

const (
	Stay Direction = iota
	Previous
	Next
)

// DefaultScrollThreshold is the number of qualifying wheel events needed to
// change posts.
const DefaultScrollThreshold = 2

// ScrollDetector turns wheel events at the scroll extremities into post
// navigation. Only consecutive events at the same extremity count; any
// event away from both ends starts the count over.
type ScrollDetector struct {
	Threshold int

	count int
	dir   Direction
	top   bool
	bot   bool
}

// Feed records one wheel event. deltaY < 0 scrolls up.
func (d *ScrollDetector) Feed(deltaY float64, atTop, atBottom bool) Direction {
	threshold := d.Threshold
	if threshold <= 0 {
		threshold = DefaultScrollThreshold
	}
	if !atTop && !atBottom {
		d.count = 0
	}
	if deltaY < 0 {
		d.top, d.bot = atTop, false
		if !atTop {
			return Stay
		}
		d.step(Previous)
		if d.count < threshold {
			return Stay
		}
		d.Reset()
		return Previous
	}
	d.top, d.bot = false, atBottom
	if !atBottom {
		return Stay
	}
	d.step(Next)
	if d.count < threshold {
		return Stay
	}
	d.Reset()
	return Next
}

func (d *ScrollDetector) step(dir Direction) {
	if d.dir != dir {
		d.count = 0
		d.dir = dir
	}
	d.count++
}

// Mode reports which extremity indicator the renderer should show.
func (d *ScrollDetector) Mode() (top, bottom bool) { return d.top, d.bot }

// Reset clears the count and the indicators.
func (d *ScrollDetector) Reset() {
	d.count = 0
	d.dir = Stay
	d.top, d.bot = false, false
}
