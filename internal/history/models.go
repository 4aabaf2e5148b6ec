package history

import "time"

type outcomeRow struct {
	ID         uint      `gorm:"primaryKey"`
	SessionID  string    `gorm:"size:64;uniqueIndex;not null"`
	Agent      string    `gorm:"size:191;index"`
	PeerID     string    `gorm:"size:64"`
	Outcome    string    `gorm:"size:32;index;not null"`
	Rounds     int       `gorm:"not null"`
	SelfDice   int       `gorm:"not null"`
	PeerDice   int       `gorm:"not null"`
	Transport  string    `gorm:"size:32"`
	Profile    string    `gorm:"size:191"`
	StartedAt  time.Time `gorm:"index;not null"`
	DurationMS int64     `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (outcomeRow) TableName() string {
	return "negotiation_outcomes"
}

func (r outcomeRow) toRecord() Record {
	return Record{
		SessionID: r.SessionID,
		Agent:     r.Agent,
		PeerID:    r.PeerID,
		Outcome:   r.Outcome,
		Rounds:    r.Rounds,
		SelfDice:  r.SelfDice,
		PeerDice:  r.PeerDice,
		Transport: r.Transport,
		Profile:   r.Profile,
		StartedAt: r.StartedAt,
		Duration:  time.Duration(r.DurationMS) * time.Millisecond,
	}
}

func rowFromRecord(rec Record) outcomeRow {
	return outcomeRow{
		SessionID:  rec.SessionID,
		Agent:      rec.Agent,
		PeerID:     rec.PeerID,
		Outcome:    rec.Outcome,
		Rounds:     rec.Rounds,
		SelfDice:   rec.SelfDice,
		PeerDice:   rec.PeerDice,
		Transport:  rec.Transport,
		Profile:    rec.Profile,
		StartedAt:  rec.StartedAt.UTC(),
		DurationMS: rec.Duration.Milliseconds(),
	}
}
