package treesummary

import "math"

const (
	// DefaultMaxTotalDescendants bounds the summed weight of a directory's
	// children before truncation kicks in.
	DefaultMaxTotalDescendants = 300
	// DefaultMaxDirectChildren bounds the number of children rendered per
	// directory.
	DefaultMaxDirectChildren = 40

	defaultDominantShare        = 0.8
	defaultMinimumDominantShare = 0.2
	defaultHeadShare            = 0.5
	countCapMultiplier          = 10
	minimumEffectiveChildLimit  = 2
)

// Limits bounds the size of a summary.
type Limits struct {
	MaxTotalDescendants int
	MaxDirectChildren   int
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxTotalDescendants: DefaultMaxTotalDescendants,
		MaxDirectChildren:   DefaultMaxDirectChildren,
	}
}

func (limits Limits) withDefaults() Limits {
	if limits.MaxTotalDescendants <= 0 {
		limits.MaxTotalDescendants = DefaultMaxTotalDescendants
	}
	if limits.MaxDirectChildren <= 0 {
		limits.MaxDirectChildren = DefaultMaxDirectChildren
	}
	return limits
}

// Heuristics tunes the truncation policy. Zero values select the defaults.
type Heuristics struct {
	// DominantShare is the fraction of the sibling weight above which a
	// sufficiently large child collapses.
	DominantShare float64
	// MinimumDominantShare is the fraction of MaxTotalDescendants a child must
	// reach before DominantShare applies.
	MinimumDominantShare float64
	// HeadShare is the fraction of the child limit kept at the head; the rest
	// is kept at the tail.
	HeadShare float64
	// CountCap stops descendant counting; it defaults to ten times
	// MaxTotalDescendants.
	CountCap int
}

// DefaultHeuristics returns the tuned constants.
func DefaultHeuristics() Heuristics {
	return Heuristics{
		DominantShare:        defaultDominantShare,
		MinimumDominantShare: defaultMinimumDominantShare,
		HeadShare:            defaultHeadShare,
	}
}

func (heuristics Heuristics) withDefaults(limits Limits) Heuristics {
	if heuristics.DominantShare <= 0 || heuristics.DominantShare > 1 {
		heuristics.DominantShare = defaultDominantShare
	}
	if heuristics.MinimumDominantShare <= 0 || heuristics.MinimumDominantShare > 1 {
		heuristics.MinimumDominantShare = defaultMinimumDominantShare
	}
	if heuristics.HeadShare <= 0 || heuristics.HeadShare >= 1 {
		heuristics.HeadShare = defaultHeadShare
	}
	if heuristics.CountCap <= limits.MaxTotalDescendants {
		heuristics.CountCap = limits.MaxTotalDescendants * countCapMultiplier
	}
	return heuristics
}

// measuredEntry is a relevant child together with its capped weight.
type measuredEntry struct {
	absolutePath string
	relativePath string
	entry        Entry
	weight       int
	capped       bool
	protected    bool
}

type slotAction int

const (
	slotExpand slotAction = iota
	slotCollapse
	slotMiddle
)

// plannedSlot is one child position in a directory's output.
type plannedSlot struct {
	action   slotAction
	reason   TruncationReason
	measured measuredEntry
	skipped  []measuredEntry
}

type truncationPolicy struct {
	limits     Limits
	heuristics Heuristics
}

func newTruncationPolicy(limits Limits, heuristics Heuristics) truncationPolicy {
	limits = limits.withDefaults()
	return truncationPolicy{limits: limits, heuristics: heuristics.withDefaults(limits)}
}

func (policy truncationPolicy) countLimit() int {
	return policy.heuristics.CountCap
}

func (policy truncationPolicy) fits(childCount, totalWeight int) bool {
	return childCount <= policy.limits.MaxDirectChildren && totalWeight <= policy.limits.MaxTotalDescendants
}

func (policy truncationPolicy) isHeavy(weight, totalWeight int) bool {
	maxTotal := policy.limits.MaxTotalDescendants
	if weight > maxTotal {
		return true
	}
	if totalWeight <= 0 {
		return false
	}
	minimum := policy.heuristics.MinimumDominantShare * float64(maxTotal)
	share := float64(weight) / float64(totalWeight)
	return float64(weight) >= minimum && share > policy.heuristics.DominantShare
}

// effectiveChildLimit scales MaxDirectChildren down when the remaining weight
// exceeds MaxTotalDescendants.
func (policy truncationPolicy) effectiveChildLimit(remainingWeight int) int {
	limit := policy.limits.MaxDirectChildren
	maxTotal := policy.limits.MaxTotalDescendants
	if remainingWeight <= maxTotal || remainingWeight <= 0 {
		return limit
	}
	scaled := int(math.Floor(float64(limit) * float64(maxTotal) / float64(remainingWeight)))
	if scaled < minimumEffectiveChildLimit {
		scaled = minimumEffectiveChildLimit
	}
	if scaled < limit {
		return scaled
	}
	return limit
}

// split returns the head and tail sizes for available entries under limit.
func (policy truncationPolicy) split(available, limit int) (int, int) {
	head := int(math.Floor(float64(limit) * policy.heuristics.HeadShare))
	tail := int(math.Floor(float64(limit) * (1 - policy.heuristics.HeadShare)))
	if head+tail == 0 {
		head = 1
	}
	if head > available {
		head = available
	}
	if tail > available-head {
		tail = available - head
	}
	return head, tail
}

// applyHeavy collapses unprotected directories that dominate their siblings.
func (policy truncationPolicy) applyHeavy(measured []measuredEntry, totalWeight int) []plannedSlot {
	slots := make([]plannedSlot, 0, len(measured))
	for _, candidate := range measured {
		slot := plannedSlot{action: slotExpand, measured: candidate}
		if candidate.entry.IsDirectory() && !candidate.protected && policy.isHeavy(candidate.weight, totalWeight) {
			slot.action = slotCollapse
			slot.reason = ReasonHeavy
		}
		slots = append(slots, slot)
	}
	return slots
}

// applySmart keeps a head and a tail of slots and folds the unprotected middle
// into one placeholder slot.
func (policy truncationPolicy) applySmart(slots []plannedSlot) []plannedSlot {
	remainingWeight := 0
	for _, slot := range slots {
		if slot.action == slotExpand {
			remainingWeight += slot.measured.weight
		}
	}
	limit := policy.effectiveChildLimit(remainingWeight)
	if len(slots) <= limit {
		return slots
	}
	head, tail := policy.split(len(slots), limit)
	planned := make([]plannedSlot, 0, head+tail+1)
	planned = append(planned, slots[:head]...)

	var skipped []measuredEntry
	for _, slot := range slots[head : len(slots)-tail] {
		if slot.measured.protected {
			planned = append(planned, slot)
			continue
		}
		skipped = append(skipped, slot.measured)
	}
	switch len(skipped) {
	case 0:
	case 1:
		planned = append(planned, plannedSlot{action: slotCollapse, reason: ReasonSmart, measured: skipped[0]})
	default:
		planned = append(planned, plannedSlot{action: slotMiddle, reason: ReasonSmart, skipped: skipped})
	}
	return append(planned, slots[len(slots)-tail:]...)
}
