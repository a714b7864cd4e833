package server

import "github.com/teranos/ldx/logger"

// broadcastMessage queues data for every connected client and returns how
// many accepted it. A client whose buffer is full misses the frame.
func (s *Server) broadcastMessage(data []byte) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sent := 0
	for client := range s.clients {
		select {
		case client.send <- data:
			sent++
		default:
			drops := s.broadcastDrops.Add(1)
			s.logger.Warnw("Dropped broadcast, client not keeping up",
				logger.FieldClientID, client.id,
				"total_drops", drops,
			)
		}
	}
	return sent
}

// sendTo queues data for one client unless its connection has closed.
func (s *Server) sendTo(c *Client, data []byte) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		s.broadcastDrops.Add(1)
		return false
	}
}
