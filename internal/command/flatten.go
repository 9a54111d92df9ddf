package command

// FlattenPreferences converts slot-aware media button preferences into the
// flat custom layout older controllers render.
//
// Each button takes the first of its slots that is usable: SlotBack when
// backSlotAllowed and no earlier button took it, SlotForward likewise, and
// SlotOverflow always. Central and secondary slots have no place in a flat
// layout and are passed over. A button with no usable slot is dropped. The
// result holds the back button, then the forward button, then the overflow
// buttons in their original order, each copied with its resolved slot.
func FlattenPreferences(prefs []Button, backSlotAllowed, forwardSlotAllowed bool) []Button {
	var (
		back, forward *Button
		overflow      []Button
	)
	for _, btn := range prefs {
	slots:
		for _, slot := range btn.Slots {
			switch slot {
			case SlotBack:
				if backSlotAllowed && back == nil {
					b := btn.CopyWithSlots(SlotBack)
					back = &b
					break slots
				}
			case SlotForward:
				if forwardSlotAllowed && forward == nil {
					f := btn.CopyWithSlots(SlotForward)
					forward = &f
					break slots
				}
			case SlotOverflow:
				overflow = append(overflow, btn.CopyWithSlots(SlotOverflow))
				break slots
			}
		}
	}

	out := make([]Button, 0, len(overflow)+2)
	if back != nil {
		out = append(out, *back)
	}
	if forward != nil {
		out = append(out, *forward)
	}
	return append(out, overflow...)
}
