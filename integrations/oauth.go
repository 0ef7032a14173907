package integrations

import "net/url"

const trelloAuthorizeURL = "https://trello.com/1/authorize"

// GenerateOAuthURL builds the Trello authorize URL for a server. Trello hands
// the token back in the URL fragment of returnURL, which carries server_id.
func GenerateOAuthURL(key, returnURL, serverID, appName string) string {
	ret, err := url.Parse(returnURL)
	if err == nil {
		q := ret.Query()
		q.Set("server_id", serverID)
		ret.RawQuery = q.Encode()
		returnURL = ret.String()
	}

	params := url.Values{}
	params.Set("key", key)
	params.Set("name", appName)
	params.Set("scope", "read,write")
	params.Set("expiration", "never")
	params.Set("response_type", "token")
	params.Set("callback_method", "fragment")
	params.Set("return_url", returnURL)

	return trelloAuthorizeURL + "?" + params.Encode()
}
