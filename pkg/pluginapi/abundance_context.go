package pluginapi

const (
	abundanceAbsent    = "absent"
	abundanceSingleton = "singleton"
	abundanceDoubleton = "doubleton"
	abundanceCommon    = "common"
)

// AbundanceContext provides contextual access to observation abundance classes.
type AbundanceContext interface {
	Classes() AbundanceClassProvider
}

// AbundanceClassProvider exposes the canonical abundance classes estimators
// care about: absent counts, singletons, doubletons, and everything richer.
type AbundanceClassProvider interface {
	Absent() AbundanceClassRef
	Singleton() AbundanceClassRef
	Doubleton() AbundanceClassRef
	Common() AbundanceClassRef
}

// AbundanceClassRef represents an opaque abundance class reference.
type AbundanceClassRef interface {
	String() string
	// IsRare reports whether the class is a singleton or doubleton, the
	// frequencies rare-species estimators are built on.
	IsRare() bool
	// IsAbsent reports whether the observation carries no individuals.
	IsAbsent() bool
	Equals(other AbundanceClassRef) bool
	isAbundanceClassRef()
}

type abundanceContext struct{}

// NewAbundanceContext constructs the default abundance context provider.
func NewAbundanceContext() AbundanceContext {
	return abundanceContext{}
}

func (abundanceContext) Classes() AbundanceClassProvider {
	return abundanceClassProvider{}
}

type abundanceClassProvider struct{}

func (abundanceClassProvider) Absent() AbundanceClassRef {
	return abundanceClassRef{value: abundanceAbsent}
}

func (abundanceClassProvider) Singleton() AbundanceClassRef {
	return abundanceClassRef{value: abundanceSingleton}
}

func (abundanceClassProvider) Doubleton() AbundanceClassRef {
	return abundanceClassRef{value: abundanceDoubleton}
}

func (abundanceClassProvider) Common() AbundanceClassRef {
	return abundanceClassRef{value: abundanceCommon}
}

type abundanceClassRef struct {
	value string
}

func (a abundanceClassRef) String() string {
	return a.value
}

func (a abundanceClassRef) IsRare() bool {
	return a.value == abundanceSingleton || a.value == abundanceDoubleton
}

func (a abundanceClassRef) IsAbsent() bool {
	return a.value == abundanceAbsent
}

func (a abundanceClassRef) Equals(other AbundanceClassRef) bool {
	if otherRef, ok := other.(abundanceClassRef); ok {
		return a.value == otherRef.value
	}
	return false
}

func (a abundanceClassRef) isAbundanceClassRef() {}

// ClassifyCount maps a raw observation count to its abundance class.
func ClassifyCount(count int) AbundanceClassRef {
	classes := abundanceClassProvider{}
	switch {
	case count <= 0:
		return classes.Absent()
	case count == 1:
		return classes.Singleton()
	case count == 2:
		return classes.Doubleton()
	default:
		return classes.Common()
	}
}
