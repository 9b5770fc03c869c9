// Command depfresh reports outdated npm dependencies and updates package.json.
package main

import "github.com/sambabib/depfresh/cmd"

func main() {
	cmd.Execute()
}
