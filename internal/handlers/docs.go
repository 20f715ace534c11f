package handlers

import (
	"html/template"
	"net/http"
)

// The page is served under a default-src 'none' policy, so it carries no
// styles or scripts.
const apiDocsHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>Rating Engine API</title>
</head>
<body>
<h1>Rating Engine API</h1>
<p>Version {{.Version}}</p>

<h2>Authentication</h2>
<p>Match outcomes are submitted by game servers holding a service token with the
<code>{{.SubmitScope}}</code> scope. Send it as <code>Authorization: Bearer &lt;token&gt;</code>.
Mint one with <code>go run ./cmd/tokengen -service &lt;name&gt;</code>.</p>

<h2>Match outcomes</h2>
<h3>POST /api/matches/outcome</h3>
<p>Rates a finished match. Unranked matches are accepted and ignored. Players
that could not be updated are listed under <code>failures</code> and retried in the
background when the failure is transient.</p>
<pre>{
  "matchId": "m-8841",
  "isRanked": true,
  "participants": [
    {"playerId": "alice", "votesReceived": 5, "placement": 1},
    {"playerId": "bob", "votesReceived": 2, "placement": 2, "ratingAtStart": 1310}
  ]
}</pre>
<p>Response:</p>
<pre>{
  "matchId": "m-8841",
  "results": {
    "alice": {"playerId": "alice", "oldRating": 1200, "newRating": 1224, "ratingChange": 24, "tier": "Gold II"}
  },
  "failures": {
    "bob": {"kind": "PersistenceTimeout", "playerId": "bob", "oldRating": 1310, "attemptedRating": 1286, "retryable": true}
  }
}</pre>

<h2>Players</h2>
<h3>GET /api/players/{playerId}/rating</h3>
<p>Current rating with tier, division and confidence. Unknown players get the
starting rating with <code>rated: false</code>.</p>
<h3>GET /api/players/{playerId}/history?limit=50</h3>
<p>Recent rating changes, newest first. At most 200 entries.</p>

<h2>Leaderboard</h2>
<h3>GET /api/leaderboard?limit=50</h3>
<p>Top players by rating. At most 500 entries.</p>
<h3>GET /api/leaderboard/{playerId}</h3>
<p>One player's position, or 404 when unranked.</p>

<h2>Matchmaking</h2>
<h3>POST /api/matchmaking/quick-join</h3>
<p>Body <code>{"playerId": "alice"}</code>. Returns the waiting ranked room whose mean
rating is closest to the player's, or opens a new one.</p>
<pre>{"roomId": "r-17", "created": false, "rating": 1224}</pre>
<h3>GET /api/matchmaking/browse?playerId=alice</h3>
<p>Joinable ranked rooms within the browse tolerance, closest first.</p>

<h2>Live updates</h2>
<h3>GET /ws/ratings/{playerId}</h3>
<p>Websocket stream of <code>rating_update</code> messages for one player.</p>
<h3>GET /ws/lobby</h3>
<p>Websocket stream of <code>room_created</code> messages.</p>

<h2>Tiers</h2>
<table>
<tr><th>Tier</th><th>Floor</th><th>Divisions</th></tr>
{{range .Tiers}}<tr><td>{{.Name}}</td><td>{{.Floor}}</td><td>{{.Divisions}}</td></tr>
{{end}}</table>
</body>
</html>`

var docsTemplate = template.Must(template.New("docs").Parse(apiDocsHTML))

type docsData struct {
	Version     string
	SubmitScope string
	Tiers       interface{}
}

// DocsHandler renders the API reference page.
type DocsHandler struct {
	data docsData
}

func NewDocsHandler(version, submitScope string, tiers interface{}) *DocsHandler {
	return &DocsHandler{data: docsData{Version: version, SubmitScope: submitScope, Tiers: tiers}}
}

func (h *DocsHandler) ServeAPIDocs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	docsTemplate.Execute(w, h.data)
}
