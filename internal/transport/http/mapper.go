package http

import (
	"encoding/json"

	"github.com/tradecircle/tradecircle/internal/core"
	"github.com/tradecircle/tradecircle/internal/proto"
)

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeJoin:
		var join proto.JoinData
		if err := json.Unmarshal(inbound.Data, &join); err != nil {
			return nil, nil, err
		}
		if join.GroupID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "group_id is required"}, nil
		}
		return &core.Command{
			Kind:    core.CommandJoinGroup,
			GroupID: join.GroupID,
		}, nil, nil
	case proto.InboundTypeLeave:
		var leave proto.LeaveData
		if err := json.Unmarshal(inbound.Data, &leave); err != nil {
			return nil, nil, err
		}
		if leave.GroupID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "group_id is required"}, nil
		}
		return &core.Command{
			Kind:    core.CommandLeaveGroup,
			GroupID: leave.GroupID,
		}, nil, nil
	case proto.InboundTypeSend:
		var send proto.SendData
		if err := json.Unmarshal(inbound.Data, &send); err != nil {
			return nil, nil, err
		}
		if send.GroupID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "group_id is required"}, nil
		}
		return &core.Command{
			Kind:    core.CommandSendMessage,
			GroupID: send.GroupID,
			Body:    send.Body,
		}, nil, nil
	default:
		return nil, &proto.Error{Code: "invalid_message", Msg: "unknown message type"}, nil
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventJoined:
		out, err := proto.NewEvent(proto.EventJoined, proto.JoinedData{
			GroupID:   event.GroupID,
			GroupName: event.GroupName,
		})
		if err != nil {
			return proto.NewError(core.ErrCodeBadRequest, err.Error())
		}
		return out
	case core.EventMessage:
		out, err := proto.NewEvent(proto.EventMessage, proto.MessageData{
			GroupID: event.GroupID,
			Message: event.Message,
		})
		if err != nil {
			return proto.NewError(core.ErrCodeBadRequest, err.Error())
		}
		return out
	case core.EventError:
		if event.Error == nil {
			return proto.NewError("unknown", "unknown error")
		}
		return proto.NewError(event.Error.Code, event.Error.Message)
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}
