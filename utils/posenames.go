package utils

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/Pallinder/go-randomdata"
)

// PoseNameGenerator hands out silly default names for saved camera poses
// when the admin does not type one. Names are unique per generator.
type PoseNameGenerator struct {
	mu   sync.Mutex
	used map[string]struct{}
}

func NewPoseNameGenerator(seed int64) *PoseNameGenerator {
	randomdata.CustomRand(rand.New(rand.NewSource(seed)))
	return &PoseNameGenerator{used: make(map[string]struct{})}
}

func (g *PoseNameGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := 0; ; i++ {
		name := randomdata.SillyName()
		if i > 64 {
			name = fmt.Sprintf("%s%d", name, len(g.used))
		}
		if _, exists := g.used[name]; !exists {
			g.used[name] = struct{}{}
			return name
		}
	}
}
