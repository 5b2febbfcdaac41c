package rules

import "testing"

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{
			"python def",
			"def hello():\n    print('hi')\n",
			"python",
		},
		{
			"python import",
			"import os\nos.getcwd()\n",
			"python",
		},
		{
			"java class",
			"public class Main {\n    public static void main(String[] args) {\n        System.out.println(\"hi\");\n    }\n}\n",
			"java",
		},
		{
			"cpp iostream",
			"#include <iostream>\nint main() {\n    std::cout << \"hi\";\n    return 0;\n}\n",
			"cpp",
		},
		{
			"cpp namespace",
			"using namespace std;\nint main() { cout << 1; }\n",
			"cpp",
		},
		{
			"c stdio",
			"#include <stdio.h>\nint main(void) {\n    printf(\"hi\");\n    return 0;\n}\n",
			"c",
		},
		{
			"c malloc only",
			"int main(void) { char *p = malloc(4); free(p); return 0; }\n",
			"c",
		},
		{
			"python bare print",
			"print('hi')\n",
			"python",
		},
		{
			"java print without class",
			"System.out.print(\"hi\");\n",
			"java",
		},
		{
			"no markers defaults to python",
			"x + y",
			"python",
		},
		{
			"empty defaults to python",
			"",
			"python",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectLanguage(tt.code); got != tt.want {
				t.Errorf("DetectLanguage = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectLanguage_Deterministic(t *testing.T) {
	code := "#include <stdio.h>\nint main(void){return 0;}\n"
	first := DetectLanguage(code)
	for i := 0; i < 5; i++ {
		if got := DetectLanguage(code); got != first {
			t.Fatalf("DetectLanguage not deterministic: %q then %q", first, got)
		}
	}
}
