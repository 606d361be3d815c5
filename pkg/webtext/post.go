package webtext

// Post sends body as UTF-8 text with the given content type
// (DefaultContentType when empty) and returns the response text.
func (c *Client) Post(url, body, contentType string) (string, error) {
	return c.plain(postRequest(url, body, contentType))
}

// PostAsync runs Post off the caller's goroutine.
func (c *Client) PostAsync(url, body, contentType string) <-chan Result {
	return goResult(func() (string, error) { return c.Post(url, body, contentType) })
}

// PostCallback posts on a call-scoped transport and reports to cb exactly once.
func (c *Client) PostCallback(url, body string, cb Callback, contentType string) {
	c.scoped(postRequest(url, body, contentType), cb)
}

// PostAsyncCallback is PostCallback off the caller's goroutine.
func (c *Client) PostAsyncCallback(url, body string, cb Callback, contentType string) <-chan struct{} {
	return goDone(func() { c.PostCallback(url, body, cb, contentType) })
}
