package engine

// CombatParticipant is anything that can trade blows. Damage is the
// attacker's strength, applied without armor, misses or criticals.
type CombatParticipant interface {
	// Attack hits target and returns the damage it actually took
	Attack(target CombatParticipant) int
	// Defend takes damage, flooring hp at zero, and returns the damage taken
	Defend(damage int) int
	Alive() bool
}

var (
	_ CombatParticipant = (*Player)(nil)
	_ CombatParticipant = (*Monster)(nil)
)

// applyDamage subtracts damage from hp, never going below zero
func applyDamage(hp *int, damage int) int {
	if damage < 0 {
		damage = 0
	}
	if damage > *hp {
		damage = *hp
	}
	*hp -= damage
	return damage
}

func (m *Monster) Attack(target CombatParticipant) int {
	return target.Defend(m.Strength)
}

// Defend applies damage. A monster left with no hp is flagged destroyed.
func (m *Monster) Defend(damage int) int {
	taken := applyDamage(&m.HP, damage)
	if m.HP <= 0 {
		m.Destroyed = true
	}
	return taken
}

func (m *Monster) Alive() bool {
	return !m.Destroyed && m.HP > 0
}

func (p *Player) Attack(target CombatParticipant) int {
	return target.Defend(p.Strength)
}

func (p *Player) Defend(damage int) int {
	return applyDamage(&p.HP, damage)
}

func (p *Player) Alive() bool {
	return p.HP > 0
}
