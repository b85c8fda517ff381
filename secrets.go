package main

// wordPair holds a secret word twice: once spelled correctly and once with a
// single engineered typo or dropped diacritic. Everyone in a round draws
// from the same pair, so the impostor's word is plausible at a glance.
type wordPair struct {
	normal   string
	impostor string
}

var wordPairs = []wordPair{
	{"RECEIPT", "RECIEPT"},
	{"DEFINITELY", "DEFINATELY"},
	{"SEPARATE", "SEPERATE"},
	{"BROCCOLI", "BROCOLLI"},
	{"MILLENNIUM", "MILLENIUM"},
	{"OCCURRENCE", "OCCURENCE"},
	{"JALAPEÑO", "JALAPENO"},
	{"CAFÉ", "CAFE"},
}

// assignSecrets deals a fresh round of secret words to the session. With
// fewer than 2 connected players nothing changes, not even the gameStarted
// flag. Otherwise every slot's round state is wiped first, then exactly one
// connected player is dealt the impostor variant and the rest the normal
// spelling of the same pair.
func (b *Broker) assignSecrets(s *Session) {
	connected := make([]int, 0, len(s.Players))
	for i := range s.Players {
		if s.Players[i].Connected {
			connected = append(connected, i)
		}
	}
	if len(connected) < 2 {
		return
	}

	impostor := connected[b.randFunc(len(connected))]
	pair := wordPairs[b.randFunc(len(wordPairs))]

	for i := range s.Players {
		s.Players[i].Password = ""
		s.Players[i].IsImpostor = false
	}

	for _, i := range connected {
		if i == impostor {
			s.Players[i].IsImpostor = true
			s.Players[i].Password = pair.impostor
		} else {
			s.Players[i].Password = pair.normal
		}
	}

	s.GameStarted = true
}
