package engine

import "math/rand/v2"

// MonsterAction is what a monster did during its step
type MonsterAction string

const (
	MonsterIdle     MonsterAction = "idle"
	MonsterMoved    MonsterAction = "moved"
	MonsterAttacked MonsterAction = "attacked"
)

// MonsterOutcome describes one monster step
type MonsterOutcome struct {
	Action MonsterAction
	From   MapCoordinate
	To     MapCoordinate
	Damage int
}

// MonsterStep runs the mood policy for one monster and applies the result.
// Aggressive monsters attack when adjacent and otherwise close in, frightened
// ones flee, neutral ones wander. Sentinels never relocate.
func MonsterStep(m *Monster, player *Player, resolver *Resolver, rng *rand.Rand) MonsterOutcome {
	out := MonsterOutcome{Action: MonsterIdle, From: m.Position, To: m.Position}
	if !m.Alive() {
		return out
	}

	current := ManhattanDistance(m.Position, player.Position)

	switch m.Mood {
	case Aggressive:
		if current <= 1 {
			if !player.Alive() {
				return out
			}
			out.Action = MonsterAttacked
			out.Damage = m.Attack(player)
			return out
		}
		if m.Sentinel {
			return out
		}
		if dir, ok := bestNeighbor(m, player, resolver, func(d int) bool { return d < current }, func(a, b int) bool { return a < b }); ok {
			moveMonster(m, dir, &out)
		}

	case Frightened:
		if m.Sentinel {
			return out
		}
		if dir, ok := bestNeighbor(m, player, resolver, func(d int) bool { return d > current }, func(a, b int) bool { return a > b }); ok {
			moveMonster(m, dir, &out)
		}

	case Neutral:
		if m.Sentinel {
			return out
		}
		dirs := append([]Direction(nil), ScanOrder...)
		if rng != nil {
			rng.Shuffle(len(dirs), func(i, j int) { dirs[i], dirs[j] = dirs[j], dirs[i] })
		}
		for _, dir := range dirs {
			if resolver.CanMonsterEnter(m.Position.Step(dir), player.Position) {
				moveMonster(m, dir, &out)
				break
			}
		}
	}

	return out
}

// bestNeighbor scans the neighbors in ScanOrder and keeps the first one that
// beats the current best. Only neighbors accepted by improves qualify.
func bestNeighbor(m *Monster, player *Player, resolver *Resolver, improves func(int) bool, better func(a, b int) bool) (Direction, bool) {
	var (
		bestDir  Direction
		bestDist int
		found    bool
	)
	for _, dir := range ScanOrder {
		target := m.Position.Step(dir)
		if !resolver.CanMonsterEnter(target, player.Position) {
			continue
		}
		d := ManhattanDistance(target, player.Position)
		if !improves(d) {
			continue
		}
		if !found || better(d, bestDist) {
			bestDir, bestDist, found = dir, d, true
		}
	}
	return bestDir, found
}

func moveMonster(m *Monster, dir Direction, out *MonsterOutcome) {
	m.Position = m.Position.Step(dir)
	m.Direction = dir
	out.Action = MonsterMoved
	out.To = m.Position
}
