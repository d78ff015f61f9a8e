package hook

import (
	"github.com/tilegate/gethook/event"
	"github.com/tilegate/gethook/world"
)

// wireKinds is the order in which ForEach turns tool mode bits into tile edits.
var wireKinds = [...]struct {
	flag    event.MultiToolMode
	place   event.TileEditType
	destroy event.TileEditType
}{
	{event.ToolRed, event.PlaceWire, event.DestroyWire},
	{event.ToolBlue, event.PlaceWireBlue, event.DestroyWireBlue},
	{event.ToolGreen, event.PlaceWireGreen, event.DestroyWireGreen},
	{event.ToolYellow, event.PlaceWireYellow, event.DestroyWireYellow},
	{event.ToolActuator, event.PlaceActuator, event.DestroyActuator},
}

func (h *Handler) decodeMassWire(dc *decodeContext) (bool, error) {
	start, err := h.point(dc.r, 0)
	if err != nil {
		return false, err
	}
	end, err := h.point(dc.r, 4)
	if err != nil {
		return false, err
	}
	mode, err := dc.r.Byte(8)
	if err != nil {
		return false, err
	}

	toolMode := event.MultiToolMode(mode)
	handled := h.raise(dc, &event.MassWireOperationEvent{
		Base:          base(dc),
		StartLocation: start,
		EndLocation:   end,
		ToolMode:      toolMode,
	})
	if handled || dc.cfg.MassWireOpTileEdit == DontInvoke {
		return handled, nil
	}

	handled = h.raiseWireEdits(dc, start, toolMode)
	if start != end {
		handled = h.raiseWireEdits(dc, end, toolMode) || handled
	}

	return handled, nil
}

// raiseWireEdits raises the tile edits implied by toolMode at one location and stops at
// the first one handled.
func (h *Handler) raiseWireEdits(dc *decodeContext, at world.Point, toolMode event.MultiToolMode) bool {
	switch dc.cfg.MassWireOpTileEdit {
	case AlwaysPlaceWire:
		return h.raise(dc, &event.TileEditEvent{Base: base(dc), Location: at, EditType: event.PlaceWire})
	case ForEach:
		isPlace := !toolMode.Has(event.ToolCutter)
		for _, kind := range wireKinds {
			if !toolMode.Has(kind.flag) {
				continue
			}

			editType := kind.destroy
			if isPlace {
				editType = kind.place
			}
			if h.raise(dc, &event.TileEditEvent{Base: base(dc), Location: at, EditType: editType}) {
				return true
			}
		}
	}

	return false
}
