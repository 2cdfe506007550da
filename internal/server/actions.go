package server

import (
	"encoding/json"
	"fmt"
	"sort"

	"sketch-party/internal/game"

	"github.com/rs/zerolog/log"
)

type actionFunc func(s *Server, cl *client, data json.RawMessage) error

var actions = map[string]actionFunc{
	msgCreateLobby:        (*Server).createLobby,
	msgJoinLobby:          (*Server).joinLobby,
	msgOpenWordSubmission: (*Server).openWordSubmission,
	msgSubmitWord:         (*Server).submitWord,
	msgSetReady:           (*Server).setReady,
	msgStartGame:          (*Server).startGame,
	msgSubmitDrawing:      (*Server).submitDrawing,
	msgVoteDrawing:        (*Server).voteDrawing,
	msgChatMessage:        (*Server).chatMessage,
}

func (s *Server) createLobby(cl *client, data json.RawMessage) error {
	var req createLobbyPayload
	if err := decodePayload(data, &req); err != nil {
		return err
	}
	res, err := s.registry.CreateLobby(cl.id, normalizeText(req.PlayerName), req.Settings)
	s.afterLeave(res.Left)
	if err != nil {
		return err
	}
	s.send(cl, msgLobbyCreated, lobbyEntered{
		RoomCode: res.RoomCode,
		PlayerID: res.PlayerID,
		Lobby:    res.Lobby,
	})
	log.Info().
		Str("room_code", res.RoomCode).
		Str("player_id", res.PlayerID).
		Str("conn_id", string(cl.id)).
		Msg("lobby created")

	if lobby, ok := s.registry.Lobby(res.RoomCode); ok {
		s.persistPhase(lobby, "lobby_created")
		s.cacheLobby(lobby)
	}
	return nil
}

func (s *Server) joinLobby(cl *client, data json.RawMessage) error {
	var req joinLobbyPayload
	if err := decodePayload(data, &req); err != nil {
		return err
	}
	name := normalizeText(req.PlayerName)
	res, err := s.registry.JoinLobby(cl.id, req.RoomCode, name)
	s.afterLeave(res.Left)
	if err != nil {
		return err
	}
	s.send(cl, msgLobbyJoined, lobbyEntered{
		RoomCode: res.RoomCode,
		PlayerID: res.PlayerID,
		Lobby:    res.Lobby,
	})
	log.Info().
		Str("room_code", res.RoomCode).
		Str("player_id", res.PlayerID).
		Str("conn_id", string(cl.id)).
		Msg("player joined")

	lobby, ok := s.registry.Lobby(res.RoomCode)
	if !ok {
		return nil
	}
	s.broadcastUpdate(lobby, lobbyUpdate{
		Event:      "player-joined",
		PlayerID:   res.PlayerID,
		PlayerName: name,
	})
	return nil
}

func (s *Server) openWordSubmission(cl *client, _ json.RawMessage) error {
	if _, err := s.registry.OpenWordSubmission(cl.id); err != nil {
		return err
	}
	lobby, binding, err := s.lobbyFor(cl)
	if err != nil {
		return err
	}
	s.broadcastUpdate(lobby, lobbyUpdate{
		Event:    "word-submission-opened",
		PlayerID: binding.PlayerID,
	})
	return nil
}

func (s *Server) submitWord(cl *client, data json.RawMessage) error {
	var req submitWordPayload
	if err := decodePayload(data, &req); err != nil {
		return err
	}
	snapshot, err := s.registry.SubmitWord(cl.id, normalizeText(req.Word))
	if err != nil {
		return err
	}
	s.send(cl, msgWordSubmitted, gameSnapshot{Lobby: snapshot})

	lobby, binding, err := s.lobbyFor(cl)
	if err != nil {
		return err
	}
	s.broadcastUpdate(lobby, lobbyUpdate{
		Event:    "word-submitted",
		PlayerID: binding.PlayerID,
	})
	return nil
}

func (s *Server) setReady(cl *client, data json.RawMessage) error {
	var req setReadyPayload
	if err := decodePayload(data, &req); err != nil {
		return err
	}
	if _, err := s.registry.SetReady(cl.id, req.Ready); err != nil {
		return err
	}
	lobby, binding, err := s.lobbyFor(cl)
	if err != nil {
		return err
	}
	s.broadcastUpdate(lobby, lobbyUpdate{
		Event:    "player-ready",
		PlayerID: binding.PlayerID,
	})
	return nil
}

func (s *Server) startGame(cl *client, _ json.RawMessage) error {
	res, err := s.registry.StartGame(cl.id)
	if err != nil {
		return err
	}
	lobby, _, err := s.lobbyFor(cl)
	if err != nil {
		return err
	}
	s.broadcast(lobby, msgGameStarted, func(view game.MemberView) any {
		return gameStarted{
			CurrentWord: res.CurrentWord,
			Round:       res.Round,
			TotalRounds: res.TotalRounds,
			DrawingTime: res.DrawingTime,
			Lobby:       view.Lobby,
		}
	})
	log.Info().
		Str("room_code", lobby.Code()).
		Int("total_rounds", res.TotalRounds).
		Msg("game started")
	s.scheduleDrawingDeadline(lobby)
	s.persistPhase(lobby, "game_started")
	s.cacheLobby(lobby)
	return nil
}

func (s *Server) submitDrawing(cl *client, data json.RawMessage) error {
	var req submitDrawingPayload
	if err := decodePayload(data, &req); err != nil {
		return err
	}
	if s.cfg.MaxDrawingBytes > 0 && len(req.DrawingData) > s.cfg.MaxDrawingBytes {
		return fmt.Errorf("%w: drawing exceeds %d bytes", game.ErrInvalidInput, s.cfg.MaxDrawingBytes)
	}
	res, err := s.registry.SubmitDrawing(cl.id, req.DrawingData)
	if err != nil {
		return err
	}
	lobby, _, err := s.lobbyFor(cl)
	if err != nil {
		return err
	}
	s.broadcast(lobby, msgDrawingSubmitted, func(view game.MemberView) any {
		return drawingSubmitted{
			DrawingID:    res.Drawing.ID,
			PlayerID:     res.Drawing.PlayerID,
			PlayerName:   res.Drawing.PlayerName,
			Round:        res.Drawing.Round,
			AllSubmitted: res.AllSubmitted,
			Lobby:        view.Lobby,
		}
	})
	if res.AllSubmitted {
		s.cancelDrawingDeadline(lobby.Code())
	}
	s.cacheLobby(lobby)
	return nil
}

func (s *Server) voteDrawing(cl *client, data json.RawMessage) error {
	var req voteDrawingPayload
	if err := decodePayload(data, &req); err != nil {
		return err
	}
	res, err := s.registry.VoteDrawing(cl.id, req.DrawingID)
	if err != nil {
		return err
	}
	lobby, binding, err := s.lobbyFor(cl)
	if err != nil {
		return err
	}
	s.broadcast(lobby, msgVoteSubmitted, func(view game.MemberView) any {
		return voteSubmitted{
			VoterID:  binding.PlayerID,
			AllVoted: res.AllVoted,
			Lobby:    view.Lobby,
		}
	})
	if res.Scored != nil {
		s.roundScored(lobby, res.Scored)
	} else {
		s.cacheLobby(lobby)
	}
	return nil
}

func (s *Server) chatMessage(cl *client, data json.RawMessage) error {
	var req chatMessagePayload
	if err := decodePayload(data, &req); err != nil {
		return err
	}
	msg, err := s.registry.SendChatMessage(cl.id, normalizeText(req.Message))
	if err != nil {
		return err
	}
	lobby, _, err := s.lobbyFor(cl)
	if err != nil {
		return err
	}
	s.broadcast(lobby, msgChatMessage, func(game.MemberView) any {
		return msg
	})
	s.cacheLobby(lobby)
	return nil
}

// roundScored announces a closed round and, after the last one, the final
// standings.
func (s *Server) roundScored(lobby *game.Lobby, score *game.RoundScore) {
	s.broadcast(lobby, msgRoundScored, func(view game.MemberView) any {
		out := roundScored{
			Round:    score.Round,
			Scores:   score.Deltas,
			GameOver: score.GameOver,
			Lobby:    view.Lobby,
		}
		if !score.GameOver && view.Lobby.CurrentRound < len(view.Lobby.Words) {
			out.NextRound = view.Lobby.CurrentRound + 1
			out.CurrentWord = view.Lobby.Words[view.Lobby.CurrentRound]
		}
		return out
	})
	log.Info().
		Str("room_code", lobby.Code()).
		Int("round", score.Round).
		Bool("game_over", score.GameOver).
		Msg("round scored")
	s.cacheLobby(lobby)
	if !score.GameOver {
		s.scheduleDrawingDeadline(lobby)
		return
	}

	results := finalStandings(lobby.Session().Players)
	s.broadcast(lobby, msgGameFinished, func(view game.MemberView) any {
		return gameFinished{
			Results: results,
			Lobby:   view.Lobby,
		}
	})
	s.persistResults(lobby)
}

// afterLeave tells the remaining players about a departure and closes out
// any round the departure completed.
func (s *Server) afterLeave(left *game.DisconnectResult) {
	if left == nil || !left.Removed {
		return
	}
	lobby := left.Lobby
	log.Info().
		Str("room_code", left.Binding.RoomCode).
		Str("player_id", left.Binding.PlayerID).
		Bool("empty", left.Empty).
		Msg("player left")
	if left.Empty {
		if left.PreviousPhase == game.PhaseDrawing || left.PreviousPhase == game.PhaseVoting {
			s.persistPhase(lobby, "game_abandoned")
		}
		s.cancelDrawingDeadline(left.Binding.RoomCode)
		s.evictLobby(left.Binding.RoomCode)
		return
	}
	s.broadcastUpdate(lobby, lobbyUpdate{
		Event:      "player-left",
		PlayerID:   left.Binding.PlayerID,
		PlayerName: left.PlayerName,
		NewHostID:  left.NewHostID,
	})
	if left.VotingOpened {
		s.cancelDrawingDeadline(left.Binding.RoomCode)
		s.broadcastUpdate(lobby, lobbyUpdate{Event: "voting-opened"})
	}
	if left.Scored != nil {
		s.roundScored(lobby, left.Scored)
	}
}

func (s *Server) broadcastUpdate(lobby *game.Lobby, update lobbyUpdate) {
	s.broadcast(lobby, msgLobbyUpdated, func(view game.MemberView) any {
		out := update
		out.Lobby = view.Lobby
		return out
	})
	s.cacheLobby(lobby)
}

func (s *Server) lobbyFor(cl *client) (*game.Lobby, game.Binding, error) {
	binding, err := s.registry.Resolve(cl.id)
	if err != nil {
		return nil, game.Binding{}, err
	}
	lobby, ok := s.registry.Lobby(binding.RoomCode)
	if !ok {
		return nil, game.Binding{}, game.ErrRoomNotFound
	}
	return lobby, binding, nil
}

func finalStandings(players []game.PlayerResult) []game.PlayerResult {
	out := append([]game.PlayerResult(nil), players...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}
