package view

import (
	"html/template"
	"io"
)

const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
{{if .Busy}}<meta http-equiv="refresh" content="2">{{end}}
<title>dTweet</title>
<style>
  *, *::before, *::after { box-sizing: border-box; margin: 0; padding: 0; }
  :root {
    --bg: #0b0f14; --surface: #151b23; --surface-hover: #1d2530;
    --border: rgba(29,155,240,0.12); --border-strong: rgba(29,155,240,0.3);
    --text: #f5f8fa; --text-dim: #aab8c2; --text-muted: #5b7083;
    --blue: #1d9bf0; --blue-light: #4cb3f5; --pink: #f91880;
  }
  body {
    font-family: -apple-system, 'SF Pro Display', 'Segoe UI', system-ui, sans-serif;
    background: var(--bg); color: var(--text);
    min-height: 100vh; padding: 40px 24px;
  }
  .container { max-width: 640px; margin: 0 auto; }

  /* Header */
  .header {
    display: flex; align-items: center; gap: 16px;
    margin-bottom: 32px; padding-bottom: 24px;
    border-bottom: 1px solid var(--border);
  }
  .header h1 { font-size: 26px; font-weight: 800; letter-spacing: -0.5px; color: var(--blue); }
  .header .spacer { flex: 1; }
  .user-address {
    font-size: 12px; color: var(--text-dim);
    font-family: 'SF Mono', 'Menlo', monospace;
  }
  .hidden { display: none !important; }

  /* Connect */
  .connect { text-align: center; margin-bottom: 24px; }
  .connect-message { color: var(--text-dim); font-size: 14px; margin-bottom: 16px; }
  button {
    font: inherit; font-weight: 700; color: #fff; background: var(--blue);
    border: none; border-radius: 20px; padding: 10px 22px; cursor: pointer;
  }
  button:hover { background: var(--blue-light); }
  button:disabled { opacity: 0.5; cursor: default; }

  /* Compose */
  .compose {
    background: var(--surface); border: 1px solid var(--border);
    border-radius: 20px; padding: 20px; margin-bottom: 24px;
  }
  .compose textarea {
    width: 100%; min-height: 90px; resize: vertical;
    background: transparent; color: var(--text); border: none; outline: none;
    font: inherit; font-size: 16px;
  }
  .compose .actions { display: flex; justify-content: flex-end; margin-top: 12px; }
  .spinner {
    width: 16px; height: 16px; border-radius: 50%;
    border: 2px solid rgba(255,255,255,0.3); border-top-color: #fff;
    animation: spin 0.8s linear infinite; display: inline-block;
  }
  @keyframes spin { to { transform: rotate(360deg); } }

  /* Tweets */
  .tweet {
    display: flex; gap: 12px; padding: 16px;
    background: var(--surface); border: 1px solid var(--border);
    border-radius: 16px; margin-bottom: 12px;
  }
  .tweet:hover { background: var(--surface-hover); }
  .tweet img { width: 48px; height: 48px; border-radius: 50%; }
  .tweet .body { flex: 1; min-width: 0; }
  .tweet .author { font-size: 12px; color: var(--text-muted); font-family: 'SF Mono', 'Menlo', monospace; }
  .tweet .text { margin: 6px 0 10px; white-space: pre-wrap; word-wrap: break-word; }
  .like-button { background: transparent; color: var(--pink); padding: 4px 10px; }
  .like-button:hover { background: rgba(249,24,128,0.1); }
</style>
</head>
<body>
<div class="container">
  <div class="header">
    <h1>dTweet</h1>
    <div class="spacer"></div>
    <div class="user-address" id="userAddress">{{.UserAddress}}</div>
  </div>

  <div class="connect">
    <p class="connect-message{{if not .ShowMessage}} hidden{{end}}" id="connectMessage">{{.ConnectMessage}}</p>
    <form method="post" action="/connect">
      <button type="submit" id="connectWalletBtn"{{if not .ShowConnect}} class="hidden"{{end}}>Connect Wallet</button>
    </form>
  </div>

  <form class="compose{{if not .ShowTweetForm}} hidden{{end}}" id="tweetForm" method="post" action="/tweets">
    <textarea id="tweetContent" name="tweetContent" maxlength="{{.MaxLength}}" placeholder="What's happening?"></textarea>
    <div class="actions">
      <button type="submit" id="tweetSubmitBtn"{{if .Submit.Disabled}} disabled{{end}}>{{if .Submit.Busy}}<span class="spinner"></span>{{else}}{{.Submit.Label}}{{end}}</button>
    </div>
  </form>

  <div id="tweetsContainer">
  {{range .Tweets}}
    <div class="tweet">
      <img src="{{.AvatarURL}}" alt="User Avatar">
      <div class="body">
        <div class="author">{{.AuthorShort}}</div>
        <div class="text">{{.Text}}</div>
        <form method="post" action="/tweets/like">
          <input type="hidden" name="author" value="{{.Like.Author}}">
          <input type="hidden" name="id" value="{{.Like.ID}}">
          <button type="submit" class="like-button"{{if .Like.Disabled}} disabled{{end}}>{{if eq .Like.State "pending"}}<span class="spinner"></span>{{else}}&#10084; <span class="likes-count">{{.Like.Count}}</span>{{end}}</button>
        </form>
        <div class="author">{{.CreatedAt.Format "2006-01-02 15:04"}}</div>
      </div>
    </div>
  {{end}}
  </div>
</div>
</body>
</html>`

// MaxTweetLength bounds the text accepted by the compose form.
const MaxTweetLength = 280

var pageTemplate = template.Must(template.New("page").Parse(pageHTML))

type pageData struct {
	State
	MaxLength int
}

// WriteHTML renders the current page. Tweet text and addresses are escaped
// by html/template.
func (p *Page) WriteHTML(w io.Writer) error {
	return pageTemplate.Execute(w, pageData{State: p.Snapshot(), MaxLength: MaxTweetLength})
}
