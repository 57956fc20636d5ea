package transfer

// transitions граф допустимых переходов. PARTIAL сюда не входит как цель:
// итоговый статус PARTIAL вычисляется функцией перехода из данных позиций,
// а не принимается от вызывающего.
var transitions = map[Status][]Status{
	StatusDraft:           {StatusPendingApproval, StatusCancelled},
	StatusPendingApproval: {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved:        {StatusPicking, StatusCancelled},
	StatusPicking:         {StatusPacked, StatusCancelled},
	StatusPacked:          {StatusInTransit, StatusCancelled},
	StatusInTransit:       {StatusDelivered, StatusReceived, StatusCancelled},
	StatusDelivered:       {StatusReceived},
}

// canTransition проверяет допустимость перехода по графу.
func canTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// cancellable отмена допустима из любого нетерминального состояния
// до момента доставки.
func cancellable(s Status) bool {
	switch s {
	case StatusDelivered, StatusReceived, StatusRejected, StatusCancelled, StatusPartial:
		return false
	}
	return true
}
