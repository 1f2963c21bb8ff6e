package session

import (
	"github.com/rhuss/judgeide/pkg/judge0"
)

// DefaultSource is loaded into new sessions. It sums the numbers of every
// stdin line.
const DefaultSource = `#include <iostream>
#include <sstream>
#include <string>

int main() {
    std::string line;
    int lineNo = 0;
    while (std::getline(std::cin, line)) {
        std::istringstream in(line);
        long long sum = 0, value = 0;
        while (in >> value) {
            sum += value;
        }
        std::cout << "line " << ++lineNo << ": " << sum << '\n';
    }
    return 0;
}
`

// DefaultStdin is the input paired with DefaultSource.
const DefaultStdin = `1 2 3
10 20
7
`

// Defaults returns the state of a fresh session.
func Defaults() State {
	return State{
		SourceCode: DefaultSource,
		LanguageID: judge0.LanguageDefault,
		Flavor:     judge0.FlavorCE,
		Stdin:      DefaultStdin,
	}
}
