package core

import "fmt"

const (
	serverPrefix      = "SERVER: "
	defaultNamePrefix = "Unnamed-"
)

func connectedNotice(c *Client) string {
	return fmt.Sprintf("%sClient (%s) (%s) connected", serverPrefix, c.Name, c.Addr)
}

func disconnectedNotice(c *Client) string {
	return fmt.Sprintf("%sClient (%s) (%s) disconnected", serverPrefix, c.Name, c.Addr)
}

func renamedNotice(c *Client, newName string) string {
	return fmt.Sprintf("%sClient (%s) (%s) changed name to (%s)", serverPrefix, c.Name, c.Addr, newName)
}

func nameReply(name string) string {
	return fmt.Sprintf("%sYour name is %s", serverPrefix, name)
}

func chatLine(name, text string) string {
	return fmt.Sprintf("%s-: %s", name, text)
}

func diagnostic(err error) string {
	return serverPrefix + err.Error()
}
