package project

// DefaultProjectName is used when a project is created without a name.
const DefaultProjectName = "My LaTeX Project"

// NewTexSkeleton is the content of a newly added .tex file.
const NewTexSkeleton = "\\documentclass{article}\n\n\\begin{document}\n\n\\end{document}"

const sampleArticle = `\documentclass{article}
\usepackage{amsmath}

\begin{document}

\title{Sample LaTeX Document}
\author{Your Name}
\date{\today}
\maketitle

\section{Introduction}
Here is the energy equation combining rest mass energy and kinetic energy:

\[
E = mc^2 + \frac{1}{2}mv^2
\]

\section{Mathematical Expressions}
Some mathematical expressions:
\begin{equation}
\int_{0}^{\infty} e^{-x^2} dx = \frac{\sqrt{\pi}}{2}
\end{equation}

\subsection{Lists}
\begin{itemize}
\item First item
\item Second item
\item Third item
\end{itemize}

\end{document}`

const sampleBibliography = `@article{einstein1905,
  title={Zur Elektrodynamik bewegter K{\"o}rper},
  author={Einstein, Albert},
  journal={Annalen der physik},
  volume={17},
  number={10},
  pages={891--921},
  year={1905},
  publisher={Wiley Online Library}
}`

var seedFiles = []struct {
	name    string
	content string
}{
	{"main.tex", sampleArticle},
	{"references.bib", sampleBibliography},
}
